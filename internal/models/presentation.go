package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Narration modes.
const (
	ModeOverview = "overview"
	ModePerSlide = "per-slide"
	ModeDual     = "dual"
)

// Processing statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Audio modes.
const (
	AudioModeSingle = "single"
	AudioModeDual   = "dual"
)

type Presentation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PresentationID string             `bson:"presentation_id" json:"presentation_id"` // uuid v4

	Title            string `bson:"title" json:"title"` // placeholder until extraction completes
	OriginalFileName string `bson:"original_file_name" json:"original_file_name"`
	TotalSlides      int    `bson:"total_slides" json:"total_slides"`
	Mode             string `bson:"mode" json:"mode"` // overview|per-slide|dual

	SlideTexts []string         `bson:"slide_texts,omitempty" json:"slide_texts,omitempty"`
	Script     string           `bson:"script,omitempty" json:"script,omitempty"`
	Transcript []TranscriptLine `bson:"transcript,omitempty" json:"transcript,omitempty"`

	SourceBlobID string `bson:"source_blob_id,omitempty" json:"source_blob_id,omitempty"`
	PDFBlobID    string `bson:"pdf_blob_id,omitempty" json:"pdf_blob_id,omitempty"`
	AudioBlobID  string `bson:"audio_blob_id,omitempty" json:"audio_blob_id,omitempty"`
	HasAudio     bool   `bson:"has_audio" json:"has_audio"`
	AudioMode    string `bson:"audio_mode,omitempty" json:"audio_mode,omitempty"` // single|dual

	ProcessingStatus   string `bson:"processing_status" json:"processing_status"` // processing|completed|failed
	ProcessingProgress int    `bson:"processing_progress" json:"processing_progress"`
	Error              string `bson:"error,omitempty" json:"error,omitempty"`
	ErrorDetails       string `bson:"error_details,omitempty" json:"error_details,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// TranscriptLine is one role-tagged line of the narration script. The
// transcript is the durable representation of the narration: it is always
// set on a completed presentation, even when audio generation failed.
type TranscriptLine struct {
	Role string `bson:"role" json:"role"` // Narrator|Expert
	Text string `bson:"text" json:"text"`
}
