package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/MoAftaab/slidecast/internal/models"
	"github.com/MoAftaab/slidecast/internal/utils"
)

// memRepo mirrors the Mongo repository's update semantics: terminal records
// reject further mutation and progress only moves forward.
type memRepo struct {
	mu   sync.Mutex
	recs map[string]*models.Presentation
}

func newMemRepo(recs ...*models.Presentation) *memRepo {
	m := &memRepo{recs: map[string]*models.Presentation{}}
	for _, r := range recs {
		m.recs[r.PresentationID] = r
	}
	return m
}

func (m *memRepo) Create(_ context.Context, p *models.Presentation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[p.PresentationID]; ok {
		return errors.New("duplicate presentation_id")
	}
	cp := *p
	m.recs[p.PresentationID] = &cp
	return nil
}

func (m *memRepo) GetByPresentationID(_ context.Context, id string) (*models.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.recs[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) SetProgress(_ context.Context, id string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.recs[id]
	if !ok || p.ProcessingStatus != models.StatusProcessing {
		return nil
	}
	if progress > p.ProcessingProgress {
		p.ProcessingProgress = progress
	}
	return nil
}

func (m *memRepo) UpdateFields(_ context.Context, id string, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.recs[id]
	if !ok || p.ProcessingStatus != models.StatusProcessing {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "title":
			p.Title = v.(string)
		case "total_slides":
			p.TotalSlides = v.(int)
		case "slide_texts":
			p.SlideTexts = v.([]string)
		case "script":
			p.Script = v.(string)
		case "transcript":
			p.Transcript = v.([]models.TranscriptLine)
		case "pdf_blob_id":
			p.PDFBlobID = v.(string)
		case "audio_blob_id":
			p.AudioBlobID = v.(string)
		case "has_audio":
			p.HasAudio = v.(bool)
		case "audio_mode":
			p.AudioMode = v.(string)
		case "processing_status":
			p.ProcessingStatus = v.(string)
		case "processing_progress":
			p.ProcessingProgress = v.(int)
		case "error":
			p.Error = v.(string)
		case "error_details":
			p.ErrorDetails = v.(string)
		}
	}
	return nil
}

func (m *memRepo) MarkCompleted(ctx context.Context, id string, fields bson.M) error {
	fields["processing_status"] = models.StatusCompleted
	fields["processing_progress"] = 100
	return m.UpdateFields(ctx, id, fields)
}

func (m *memRepo) MarkFailed(ctx context.Context, id string, errMsg, errDetails string) error {
	return m.UpdateFields(ctx, id, bson.M{
		"processing_status": models.StatusFailed,
		"error":             errMsg,
		"error_details":     errDetails,
	})
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
	next int
}

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (b *memBlobs) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return "", errors.New("blob store down")
	}
	b.next++
	id := fmt.Sprintf("blob-%d-%s", b.next, name)
	b.data[id] = data
	return id, nil
}

func (b *memBlobs) Get(_ context.Context, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.data[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return d, nil
}

func (b *memBlobs) OpenRead(ctx context.Context, id string) (io.ReadCloser, error) {
	d, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(d)), nil
}

// Stage stubs.

type stubConverter struct{ err error }

func (s stubConverter) Convert(context.Context, []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF"), nil
}

type stubExtractor struct {
	slides []string
	err    error
}

func (s stubExtractor) Extract([]byte) ([]string, error) { return s.slides, s.err }

type stubScripter struct{ script string }

func (s stubScripter) Generate(context.Context, string, []string, string) string { return s.script }

type stubSynth struct {
	segments []Segment
	err      error
}

func (s stubSynth) Synthesize(context.Context, string, string) ([]Segment, error) {
	return s.segments, s.err
}

type stubAssembler struct{ err error }

func (s stubAssembler) Combine(segs [][]byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []byte
	for _, seg := range segs {
		out = append(out, seg...)
	}
	return out, nil
}

type recordedNotify struct {
	Status   string
	Stage    string
	Progress int
}

type stubNotifier struct {
	mu    sync.Mutex
	calls []recordedNotify
}

func (n *stubNotifier) Notify(_ context.Context, _ string, status, stage string, progress int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotify{Status: status, Stage: stage, Progress: progress})
}

func newProcessingRecord(id, mode string) *models.Presentation {
	return &models.Presentation{
		PresentationID:   id,
		Title:            "Processing...",
		TotalSlides:      1,
		Mode:             mode,
		ProcessingStatus: models.StatusProcessing,
	}
}

func newTestRunner(repo *memRepo, blobs *memBlobs) *Runner {
	return &Runner{
		Records:   repo,
		Blobs:     blobs,
		Converter: stubConverter{},
		Extractor: stubExtractor{slides: []string{"Intro Slide\ncontent", "Second slide"}},
		Scripter:  stubScripter{script: "Narrator: Hello there.\nExpert: Details follow."},
		Synth:     stubSynth{segments: []Segment{{Role: RoleNarrator, Audio: []byte("aa")}, {Role: RoleExpert, Audio: []byte("bb")}}},
		Assembler: stubAssembler{},
		Notifier:  &stubNotifier{},
		Log:       testLogger(),
	}
}

func TestRunnerHappyPath(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeDual))
	blobs := newMemBlobs()
	r := newTestRunner(repo, blobs)

	r.Run(context.Background(), "p1", []byte("pptx bytes"))

	rec, err := repo.GetByPresentationID(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, rec.ProcessingStatus)
	require.Equal(t, 100, rec.ProcessingProgress)
	require.Equal(t, "Intro Slide", rec.Title)
	require.Equal(t, 2, rec.TotalSlides)
	require.Len(t, rec.SlideTexts, 2)
	require.True(t, rec.HasAudio)
	require.Equal(t, models.AudioModeDual, rec.AudioMode)
	require.NotEmpty(t, rec.PDFBlobID)
	require.NotEmpty(t, rec.AudioBlobID)
	require.Empty(t, rec.Error)

	require.Equal(t, []models.TranscriptLine{
		{Role: "Narrator", Text: "Hello there."},
		{Role: "Expert", Text: "Details follow."},
	}, rec.Transcript)

	audio, err := blobs.Get(context.Background(), rec.AudioBlobID)
	require.NoError(t, err)
	require.Equal(t, []byte("aabb"), audio)
}

func TestRunnerSingleModeAudioMode(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeOverview))
	r := newTestRunner(repo, newMemBlobs())

	r.Run(context.Background(), "p1", nil)

	rec, _ := repo.GetByPresentationID(context.Background(), "p1")
	require.Equal(t, models.AudioModeSingle, rec.AudioMode)
}

func TestRunnerConversionFailure(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeDual))
	notifier := &stubNotifier{}
	r := newTestRunner(repo, newMemBlobs())
	r.Converter = stubConverter{err: fmt.Errorf("%w: soffice exited 1", ErrConversion)}
	r.Notifier = notifier

	r.Run(context.Background(), "p1", nil)

	rec, _ := repo.GetByPresentationID(context.Background(), "p1")
	require.Equal(t, models.StatusFailed, rec.ProcessingStatus)
	require.Equal(t, progressStarted, rec.ProcessingProgress)
	require.Contains(t, rec.Error, "soffice exited 1")

	var details map[string]string
	require.NoError(t, json.Unmarshal([]byte(rec.ErrorDetails), &details))
	require.Equal(t, "CONVERSION_FAILED", details["classification"])
	require.Equal(t, "converting", details["stage"])

	last := notifier.calls[len(notifier.calls)-1]
	require.Equal(t, models.StatusFailed, last.Status)
	require.Equal(t, progressStarted, last.Progress)
}

func TestRunnerExtractionFailure(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeDual))
	r := newTestRunner(repo, newMemBlobs())
	r.Extractor = stubExtractor{err: ErrExtraction}

	r.Run(context.Background(), "p1", nil)

	rec, _ := repo.GetByPresentationID(context.Background(), "p1")
	require.Equal(t, models.StatusFailed, rec.ProcessingStatus)
	require.Equal(t, progressConverted, rec.ProcessingProgress)

	var details map[string]string
	require.NoError(t, json.Unmarshal([]byte(rec.ErrorDetails), &details))
	require.Equal(t, "EXTRACTION_FAILED", details["classification"])
}

func TestRunnerSynthesisFailureDegradesToTranscript(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeDual))
	r := newTestRunner(repo, newMemBlobs())
	r.Synth = stubSynth{err: ErrSynthesis}

	r.Run(context.Background(), "p1", nil)

	rec, _ := repo.GetByPresentationID(context.Background(), "p1")
	require.Equal(t, models.StatusCompleted, rec.ProcessingStatus)
	require.Equal(t, 100, rec.ProcessingProgress)
	require.False(t, rec.HasAudio)
	require.Empty(t, rec.AudioBlobID)
	require.NotEmpty(t, rec.Transcript)
	require.Equal(t, "Audio generation failed, but transcript is available", rec.Error)
}

func TestRunnerAssemblyFailureDegradesToTranscript(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeDual))
	r := newTestRunner(repo, newMemBlobs())
	r.Assembler = stubAssembler{err: ErrAssembly}

	r.Run(context.Background(), "p1", nil)

	rec, _ := repo.GetByPresentationID(context.Background(), "p1")
	require.Equal(t, models.StatusCompleted, rec.ProcessingStatus)
	require.False(t, rec.HasAudio)
	require.Equal(t, "Audio combination failed, but transcript is available", rec.Error)
}

func TestRunnerAudioStorageFailureDegradesToTranscript(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeDual))
	blobs := newMemBlobs()
	blobs.fail = true
	r := newTestRunner(repo, blobs)

	r.Run(context.Background(), "p1", nil)

	rec, _ := repo.GetByPresentationID(context.Background(), "p1")
	require.Equal(t, models.StatusCompleted, rec.ProcessingStatus)
	require.False(t, rec.HasAudio)
	require.Equal(t, "Audio storage failed, but transcript is available", rec.Error)
}

func TestRunnerScripterPanicStillCompletes(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeDual))
	r := newTestRunner(repo, newMemBlobs())
	r.Scripter = panicScripter{}

	r.Run(context.Background(), "p1", nil)

	rec, _ := repo.GetByPresentationID(context.Background(), "p1")
	require.Equal(t, models.StatusCompleted, rec.ProcessingStatus)
	require.False(t, rec.HasAudio)
	require.NotEmpty(t, rec.Script)
	require.NotEmpty(t, rec.Transcript)
}

type panicScripter struct{}

func (panicScripter) Generate(context.Context, string, []string, string) string {
	panic("provider client bug")
}

func TestRunnerMissingRecordIsDropped(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	r := newTestRunner(repo, newMemBlobs())

	// must not panic or create anything
	r.Run(context.Background(), "ghost", nil)
	_, err := repo.GetByPresentationID(context.Background(), "ghost")
	require.ErrorIs(t, err, utils.ErrNotFound)
}

func TestRunnerDoesNotTouchTerminalRecords(t *testing.T) {
	t.Parallel()

	rec := newProcessingRecord("p1", models.ModeDual)
	rec.ProcessingStatus = models.StatusFailed
	rec.Error = "already failed"
	repo := newMemRepo(rec)
	r := newTestRunner(repo, newMemBlobs())

	r.Run(context.Background(), "p1", nil)

	got, _ := repo.GetByPresentationID(context.Background(), "p1")
	require.Equal(t, models.StatusFailed, got.ProcessingStatus)
	require.Equal(t, "already failed", got.Error)
	require.Zero(t, got.ProcessingProgress)
}

func TestRunnerNotifierSequence(t *testing.T) {
	t.Parallel()

	repo := newMemRepo(newProcessingRecord("p1", models.ModeDual))
	notifier := &stubNotifier{}
	r := newTestRunner(repo, newMemBlobs())
	r.Notifier = notifier

	r.Run(context.Background(), "p1", nil)

	var progress []int
	for _, c := range notifier.calls {
		progress = append(progress, c.Progress)
	}
	require.Equal(t, []int{5, 20, 40, 60, 80, 100}, progress)
	require.Equal(t, models.StatusCompleted, notifier.calls[len(notifier.calls)-1].Status)
}
