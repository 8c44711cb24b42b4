package handlers

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/MoAftaab/slidecast/internal/providers/health"
	"github.com/MoAftaab/slidecast/internal/services"
	"github.com/MoAftaab/slidecast/internal/utils"
)

const maxUploadSize = 50 << 20

var allowedUploadExts = map[string]struct{}{
	".ppt":  {},
	".pptx": {},
	".pdf":  {},
}

// sniffUpload checks the magic bytes against the claimed extension: %PDF for
// .pdf, a zip container for .pptx, an OLE compound file for legacy .ppt.
func sniffUpload(ext string, data []byte) bool {
	switch ext {
	case ".pdf":
		return bytes.HasPrefix(data, []byte("%PDF-"))
	case ".pptx":
		return bytes.HasPrefix(data, []byte("PK\x03\x04"))
	case ".ppt":
		return bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0})
	default:
		return false
	}
}

type PresentationHandler struct {
	svc    services.PresentationService
	health *health.Cache
}

func NewPresentationHandler(svc services.PresentationService, hc *health.Cache) *PresentationHandler {
	return &PresentationHandler{svc: svc, health: hc}
}

// Process accepts a multipart upload, creates the presentation record and
// returns its id immediately; processing continues in the background.
func (h *PresentationHandler) Process(c *gin.Context) {
	const op = "PresentationHandler.Process"

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedUploadExts[ext]; !ok {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "only .ppt, .pptx and .pdf are allowed", nil))
		return
	}
	if fh.Size <= 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "uploaded file is empty", nil))
		return
	}
	if fh.Size > maxUploadSize {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file too large (max 50MB)", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read upload", err))
		return
	}
	if !sniffUpload(ext, data) {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file content does not match its extension", nil))
		return
	}

	mode := c.PostForm("mode")

	p, err := h.svc.Start(c.Request.Context(), fh.Filename, mode, data)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      p.PresentationID,
		"status":  p.ProcessingStatus,
		"message": "Processing started",
	})
}

func (h *PresentationHandler) Status(c *gin.Context) {
	st, err := h.svc.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Content returns the finished result: transcript plus base64 audio when
// available. Before completion it surfaces the current status and progress
// instead.
func (h *PresentationHandler) Content(c *gin.Context) {
	id := c.Param("id")

	res, err := h.svc.GetResult(c.Request.Context(), id)
	if err != nil {
		if utils.IsCode(err, utils.CodeConflict) {
			st, serr := h.svc.GetStatus(c.Request.Context(), id)
			if serr != nil {
				writeError(c, serr)
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Content not ready",
				"status":   st.Status,
				"progress": st.Progress,
			})
			return
		}
		writeError(c, err)
		return
	}

	var audioBase64 string
	if res.HasAudio {
		audioBase64 = base64.StdEncoding.EncodeToString(res.Audio)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           res.PresentationID,
		"title":        res.Title,
		"mode":         res.Mode,
		"total_slides": res.TotalSlides,
		"script":       res.Script,
		"transcript":   res.Transcript,
		"has_audio":    res.HasAudio,
		"audio_mode":   res.AudioMode,
		"audio_data":   audioBase64,
		"mime_type":    "audio/mpeg",
		"error":        res.Error,
	})
}

// Stream writes the combined audio directly, for use as an <audio> source.
func (h *PresentationHandler) Stream(c *gin.Context) {
	rc, err := h.svc.StreamAudio(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "audio/mpeg")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

// APIStatus dumps the provider-health cache.
func (h *PresentationHandler) APIStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": h.health.Snapshot(),
	})
}
