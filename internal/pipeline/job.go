package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MoAftaab/slidecast/internal/models"
	mongorepo "github.com/MoAftaab/slidecast/internal/repositories/mongo"
	"github.com/MoAftaab/slidecast/internal/storage"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// Stage progress checkpoints.
const (
	progressStarted     = 5
	progressConverted   = 20
	progressExtracted   = 40
	progressScripted    = 60
	progressSynthesized = 80
)

// Stage interfaces. The concrete implementations live in this package;
// tests substitute them to drive failure paths.
type (
	Converter interface {
		Convert(ctx context.Context, src []byte) ([]byte, error)
	}
	Extractor interface {
		Extract(pdf []byte) ([]string, error)
	}
	Scripter interface {
		Generate(ctx context.Context, title string, slides []string, mode string) string
	}
	Synthesizer interface {
		Synthesize(ctx context.Context, script string, mode string) ([]Segment, error)
	}
	Assembler interface {
		Combine(segments [][]byte) ([]byte, error)
	}
)

// StatusNotifier receives best-effort stage updates (published to the
// websocket feed); failures to notify never affect the job.
type StatusNotifier interface {
	Notify(ctx context.Context, presentationID, status, stage string, progress int)
}

// Runner owns one job's pass through the pipeline. Conversion and
// extraction failures terminate the job as failed; from scripting onward
// every error degrades the result instead, so a job that produced slide
// text always completes with at least a transcript.
type Runner struct {
	Records   mongorepo.PresentationRepository
	Blobs     storage.BlobStore
	Converter Converter
	Extractor Extractor
	Scripter  Scripter
	Synth     Synthesizer
	Assembler Assembler
	Notifier  StatusNotifier
	Log       *logrus.Logger
}

// Run executes the pipeline for one presentation. It is fire-and-forget:
// all outcomes are persisted on the record, nothing is returned.
func (r *Runner) Run(ctx context.Context, presentationID string, src []byte) {
	log := r.Log.WithField("presentation_id", presentationID)

	rec, err := r.Records.GetByPresentationID(ctx, presentationID)
	if err != nil {
		log.WithError(err).Error("presentation record not found, dropping job")
		return
	}

	r.progress(ctx, presentationID, "converting", progressStarted)

	pdf, err := r.Converter.Convert(ctx, src)
	if err != nil {
		r.fail(ctx, presentationID, "converting", progressStarted, err)
		return
	}
	if pdfID, perr := r.Blobs.Put(ctx, presentationID+".pdf", "application/pdf", pdf); perr != nil {
		log.WithError(perr).Warn("failed to store intermediate pdf")
	} else {
		_ = r.Records.UpdateFields(ctx, presentationID, bson.M{"pdf_blob_id": pdfID})
	}
	r.progress(ctx, presentationID, "extracting", progressConverted)

	slides, err := r.Extractor.Extract(pdf)
	if err != nil {
		r.fail(ctx, presentationID, "extracting", progressConverted, err)
		return
	}
	title := DeriveTitle(slides)
	if err := r.Records.UpdateFields(ctx, presentationID, bson.M{
		"title":        title,
		"total_slides": len(slides),
		"slide_texts":  slides,
	}); err != nil {
		log.WithError(err).Warn("failed to persist extraction result")
	}
	r.progress(ctx, presentationID, "scripting", progressExtracted)

	r.finish(ctx, presentationID, rec.Mode, title, slides, log)
}

// finish covers scripting through assembly. Nothing in here may fail the
// job: errors and even panics resolve to a completed record with degraded
// fields.
func (r *Runner) finish(ctx context.Context, presentationID, mode, title string, slides []string, log *logrus.Entry) {
	var script string
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		log.WithField("panic", p).Error("unexpected error after extraction, completing with transcript only")
		if script == "" {
			script = FallbackScript(slides)
		}
		_ = r.Records.MarkCompleted(ctx, presentationID, bson.M{
			"script":     script,
			"transcript": ParseTranscript(script),
			"has_audio":  false,
			"error":      "Audio generation failed, but transcript is available",
		})
		r.progress(ctx, presentationID, "completed", 100)
	}()

	script = r.Scripter.Generate(ctx, title, slides, mode)
	_ = r.Records.UpdateFields(ctx, presentationID, bson.M{"script": script})
	r.progress(ctx, presentationID, "synthesizing", progressScripted)

	segments, synthErr := r.Synth.Synthesize(ctx, script, mode)
	if synthErr != nil {
		log.WithError(synthErr).Warn("speech synthesis produced no audio")
	}
	r.progress(ctx, presentationID, "assembling", progressSynthesized)

	fields := bson.M{
		"script":     script,
		"transcript": ParseTranscript(script),
		"has_audio":  false,
	}

	if synthErr != nil {
		fields["error"] = "Audio generation failed, but transcript is available"
	} else {
		buffers := make([][]byte, len(segments))
		for i, seg := range segments {
			buffers[i] = seg.Audio
		}

		combined, err := r.Assembler.Combine(buffers)
		if err != nil {
			log.WithError(err).Warn("audio assembly failed")
			fields["error"] = "Audio combination failed, but transcript is available"
		} else if audioID, err := r.Blobs.Put(ctx, presentationID+".mp3", "audio/mpeg", combined); err != nil {
			log.WithError(err).Warn("failed to store combined audio")
			fields["error"] = "Audio storage failed, but transcript is available"
		} else {
			fields["audio_blob_id"] = audioID
			fields["has_audio"] = true
			if mode == models.ModeDual {
				fields["audio_mode"] = models.AudioModeDual
			} else {
				fields["audio_mode"] = models.AudioModeSingle
			}
		}
	}

	if err := r.Records.MarkCompleted(ctx, presentationID, fields); err != nil {
		log.WithError(err).Error("failed to mark presentation completed")
		return
	}
	r.progress(ctx, presentationID, "completed", 100)
	log.Info("processing completed")
}

func (r *Runner) progress(ctx context.Context, presentationID, stage string, pct int) {
	if err := r.Records.SetProgress(ctx, presentationID, pct); err != nil {
		r.Log.WithField("presentation_id", presentationID).WithError(err).Warn("failed to persist progress")
	}
	if r.Notifier != nil {
		status := models.StatusProcessing
		if pct >= 100 {
			status = models.StatusCompleted
		}
		r.Notifier.Notify(ctx, presentationID, status, stage, pct)
	}
}

func (r *Runner) fail(ctx context.Context, presentationID, stage string, lastProgress int, err error) {
	r.Log.WithFields(logrus.Fields{"presentation_id": presentationID, "stage": stage}).WithError(err).Error("processing failed")

	details, _ := json.Marshal(map[string]string{
		"message":        err.Error(),
		"stage":          stage,
		"classification": classify(err),
	})
	if uerr := r.Records.MarkFailed(ctx, presentationID, err.Error(), string(details)); uerr != nil {
		r.Log.WithField("presentation_id", presentationID).WithError(uerr).Error("failed to persist failure")
	}
	if r.Notifier != nil {
		r.Notifier.Notify(ctx, presentationID, models.StatusFailed, stage, lastProgress)
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrConversion):
		return "CONVERSION_FAILED"
	case errors.Is(err, ErrExtraction):
		return "EXTRACTION_FAILED"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	default:
		return fmt.Sprintf("UNEXPECTED:%T", err)
	}
}
