package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"
)

const defaultConvertTimeout = 2 * time.Minute

// ConvertBackend is one external conversion tool. Args builds the command
// line that converts inputPath into outputPath (some tools only accept an
// output directory).
type ConvertBackend struct {
	Name string
	Args func(inputPath, outputPath, outDir string) (bin string, args []string)
}

// DefaultBackends tries a headless office suite first, then unoconv.
func DefaultBackends() []ConvertBackend {
	return []ConvertBackend{
		{
			Name: "soffice",
			Args: func(inputPath, outputPath, outDir string) (string, []string) {
				return "soffice", []string{"--headless", "--convert-to", "pdf", inputPath, "--outdir", outDir}
			},
		},
		{
			Name: "unoconv",
			Args: func(inputPath, outputPath, outDir string) (string, []string) {
				return "unoconv", []string{"-f", "pdf", "-o", outputPath, inputPath}
			},
		},
	}
}

// CLIConverter turns presentation bytes into PDF bytes by shelling out to
// an ordered list of conversion backends. Temp input/output paths are
// unique per call and removed on every exit path, so concurrent jobs never
// collide.
type CLIConverter struct {
	backends []ConvertBackend
	timeout  time.Duration
	log      *logrus.Logger
}

func NewCLIConverter(backends []ConvertBackend, timeout time.Duration, log *logrus.Logger) *CLIConverter {
	if len(backends) == 0 {
		backends = DefaultBackends()
	}
	if timeout <= 0 {
		timeout = defaultConvertTimeout
	}
	return &CLIConverter{backends: backends, timeout: timeout, log: log}
}

func (c *CLIConverter) Convert(ctx context.Context, src []byte) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "slidecast-convert-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	id := uuid.NewString()
	inputPath := filepath.Join(tempDir, id+".pptx")
	outputPath := filepath.Join(tempDir, id+".pdf")

	// Already-PDF uploads skip the office backends but not validation.
	if bytes.HasPrefix(src, []byte("%PDF-")) {
		if err := os.WriteFile(outputPath, src, 0o600); err != nil {
			return nil, fmt.Errorf("write temp input: %w", err)
		}
		if err := api.ValidateFile(outputPath, nil); err != nil {
			return nil, fmt.Errorf("%w: uploaded pdf failed validation: %v", ErrConversion, err)
		}
		return src, nil
	}

	if err := os.WriteFile(inputPath, src, 0o600); err != nil {
		return nil, fmt.Errorf("write temp input: %w", err)
	}

	var lastErr error
	for _, backend := range c.backends {
		pdf, err := c.tryBackend(ctx, backend, inputPath, outputPath, tempDir)
		if err == nil {
			return pdf, nil
		}
		lastErr = err
		c.log.WithFields(logrus.Fields{"backend": backend.Name}).WithError(err).Warn("conversion backend failed")
		_ = os.Remove(outputPath)
	}

	return nil, fmt.Errorf("%w: %v", ErrConversion, lastErr)
}

func (c *CLIConverter) tryBackend(ctx context.Context, backend ConvertBackend, inputPath, outputPath, outDir string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	bin, args := backend.Args(inputPath, outputPath, outDir)
	cmd := exec.CommandContext(ctx, bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %v: %s", backend.Name, err, truncate(string(out), 512))
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("%s: no output artifact at %s", backend.Name, outputPath)
	}

	// A backend exiting zero can still emit a broken file; reject it here
	// rather than letting extraction choke on it.
	if err := api.ValidateFile(outputPath, nil); err != nil {
		return nil, fmt.Errorf("%s: output failed validation: %w", backend.Name, err)
	}
	pages, err := api.PageCountFile(outputPath)
	if err != nil || pages == 0 {
		return nil, fmt.Errorf("%s: output has no pages", backend.Name)
	}

	return os.ReadFile(outputPath)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
