package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/MoAftaab/slidecast/internal/cache"
	"github.com/MoAftaab/slidecast/internal/models"
	mongorepo "github.com/MoAftaab/slidecast/internal/repositories/mongo"
	"github.com/MoAftaab/slidecast/internal/storage"
	"github.com/MoAftaab/slidecast/internal/utils"

	"github.com/google/uuid"
)

const placeholderTitle = "Processing..."

const (
	// Status reads are polled aggressively by clients; a tiny TTL takes the
	// hot path off Mongo without making progress visibly stale.
	statusCacheTTL = 2 * time.Second
	// Completed and failed records never change again, so their results can
	// be cached for much longer.
	resultCacheTTL = 30 * time.Minute
)

// JobQueue hands a created presentation off to the background worker pool.
// The enqueueing request returns immediately; callers poll the record.
type JobQueue interface {
	Enqueue(ctx context.Context, presentationID, sourceBlobID string) error
}

type Status struct {
	PresentationID string `json:"id"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	Error          string `json:"error,omitempty"`
}

type Result struct {
	PresentationID string                  `json:"id"`
	Title          string                  `json:"title"`
	Mode           string                  `json:"mode"`
	TotalSlides    int                     `json:"total_slides"`
	Script         string                  `json:"script"`
	Transcript     []models.TranscriptLine `json:"transcript"`
	Audio          []byte                  `json:"-"`
	AudioBlobID    string                  `json:"audio_blob_id,omitempty"`
	HasAudio       bool                    `json:"has_audio"`
	AudioMode      string                  `json:"audio_mode,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

type PresentationService interface {
	Start(ctx context.Context, fileName, mode string, data []byte) (*models.Presentation, error)
	GetStatus(ctx context.Context, presentationID string) (*Status, error)
	GetResult(ctx context.Context, presentationID string) (*Result, error)
	StreamAudio(ctx context.Context, presentationID string) (io.ReadCloser, error)
}

type presentationService struct {
	records mongorepo.PresentationRepository
	blobs   storage.BlobStore
	queue   JobQueue
	cache   cache.Cache
}

// NewPresentationService builds the service. c may be nil, which disables
// read caching.
func NewPresentationService(records mongorepo.PresentationRepository, blobs storage.BlobStore, queue JobQueue, c cache.Cache) PresentationService {
	return &presentationService{records: records, blobs: blobs, queue: queue, cache: c}
}

func (s *presentationService) Start(ctx context.Context, fileName, mode string, data []byte) (*models.Presentation, error) {
	const op = "PresentationService.Start"

	switch mode {
	case models.ModeOverview, models.ModePerSlide, models.ModeDual:
	case "":
		mode = models.ModeDual
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid mode", nil)
	}
	if len(data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty file", nil)
	}

	presentationID := uuid.NewString()

	sourceID, err := s.blobs.Put(ctx, "source/"+presentationID, "application/octet-stream", data)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store upload", err)
	}

	now := time.Now().UTC()
	p := &models.Presentation{
		PresentationID:     presentationID,
		Title:              placeholderTitle,
		OriginalFileName:   fileName,
		TotalSlides:        1,
		Mode:               mode,
		SourceBlobID:       sourceID,
		ProcessingStatus:   models.StatusProcessing,
		ProcessingProgress: 0,
		CreatedAt:          now,
	}
	if err := s.records.Create(ctx, p); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create presentation record", err)
	}

	if err := s.queue.Enqueue(ctx, presentationID, sourceID); err != nil {
		// The record exists but no worker will pick it up; surface that
		// instead of leaving a job stuck in processing forever.
		_ = s.records.MarkFailed(ctx, presentationID, "failed to enqueue processing job", "")
		return nil, utils.E(utils.CodeUnavailable, op, "failed to enqueue processing job", err)
	}

	return p, nil
}

func (s *presentationService) GetStatus(ctx context.Context, presentationID string) (*Status, error) {
	const op = "PresentationService.GetStatus"

	key := "presentation:" + presentationID + ":status-cache"
	if s.cache != nil {
		var cached Status
		if hit, _ := s.cache.GetJSON(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	p, err := s.get(ctx, op, presentationID)
	if err != nil {
		return nil, err
	}
	st := &Status{
		PresentationID: p.PresentationID,
		Status:         p.ProcessingStatus,
		Progress:       p.ProcessingProgress,
		Error:          p.Error,
	}

	if s.cache != nil {
		ttl := statusCacheTTL
		if p.ProcessingStatus != models.StatusProcessing {
			ttl = resultCacheTTL
		}
		_ = s.cache.SetJSON(ctx, key, st, ttl)
	}
	return st, nil
}

func (s *presentationService) GetResult(ctx context.Context, presentationID string) (*Result, error) {
	const op = "PresentationService.GetResult"

	key := "presentation:" + presentationID + ":result-cache"
	if s.cache != nil {
		var cached Result
		if hit, _ := s.cache.GetJSON(ctx, key, &cached); hit {
			if err := s.attachAudio(ctx, op, &cached); err != nil {
				return nil, err
			}
			return &cached, nil
		}
	}

	p, err := s.get(ctx, op, presentationID)
	if err != nil {
		return nil, err
	}
	if p.ProcessingStatus != models.StatusCompleted {
		return nil, utils.E(utils.CodeConflict, op, "presentation is not ready", nil)
	}

	res := &Result{
		PresentationID: p.PresentationID,
		Title:          p.Title,
		Mode:           p.Mode,
		TotalSlides:    p.TotalSlides,
		Script:         p.Script,
		Transcript:     p.Transcript,
		AudioBlobID:    p.AudioBlobID,
		HasAudio:       p.HasAudio,
		AudioMode:      p.AudioMode,
		Error:          p.Error,
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, res, resultCacheTTL)
	}
	if err := s.attachAudio(ctx, op, res); err != nil {
		return nil, err
	}
	return res, nil
}

// attachAudio loads the combined audio bytes for a result. Audio is never
// cached in Redis; it is re-read from blob storage on every request.
func (s *presentationService) attachAudio(ctx context.Context, op string, res *Result) error {
	if !res.HasAudio || res.AudioBlobID == "" {
		return nil
	}
	audio, err := s.blobs.Get(ctx, res.AudioBlobID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load audio", err)
	}
	res.Audio = audio
	return nil
}

func (s *presentationService) StreamAudio(ctx context.Context, presentationID string) (io.ReadCloser, error) {
	const op = "PresentationService.StreamAudio"

	p, err := s.get(ctx, op, presentationID)
	if err != nil {
		return nil, err
	}
	if !p.HasAudio || p.AudioBlobID == "" {
		return nil, utils.E(utils.CodeNotFound, op, "no audio available for this presentation", nil)
	}
	rc, err := s.blobs.OpenRead(ctx, p.AudioBlobID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to open audio stream", err)
	}
	return rc, nil
}

func (s *presentationService) get(ctx context.Context, op, presentationID string) (*models.Presentation, error) {
	if presentationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "presentation id is required", nil)
	}
	p, err := s.records.GetByPresentationID(ctx, presentationID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "presentation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get presentation", err)
	}
	return p, nil
}
