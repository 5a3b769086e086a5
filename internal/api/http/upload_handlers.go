package http

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/blob"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/capture"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// base64Overhead bounds the JSON body of a base64 upload.
const base64Overhead = 2 << 20

// UploadScreenshot accepts a multipart "screenshot" file.
func (h *Handlers) UploadScreenshot(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxUploadSize+base64Overhead)

	fh, err := c.FormFile("screenshot")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fh.Size > utils.MaxUploadSize {
		h.uploadError(c, blob.ErrTooLarge)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, utils.MaxUploadSize+1))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.storeUpload(c, data)
}

// UploadScreenshotBase64 accepts {imageData} as raw base64 or a data URL.
// A caller supplied filename is ignored; names are always generated.
func (h *Handlers) UploadScreenshotBase64(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxUploadSize*4/3+base64Overhead)

	var req types.Base64UploadRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ImageData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image data provided"})
		return
	}
	data, err := decodeImageData(req.ImageData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data"})
		return
	}
	h.storeUpload(c, data)
}

// decodeImageData strips an optional data URL prefix and decodes the rest.
func decodeImageData(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data url")
		}
		s = payload
	}
	s = strings.TrimSpace(s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func (h *Handlers) storeUpload(c *gin.Context, data []byte) {
	obj, err := h.blobs.SaveImage(c.Request.Context(), data)
	if err != nil {
		h.uploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": obj.URL, "filename": obj.Name})
}

func (h *Handlers) uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, blob.ErrNotImage), errors.Is(err, blob.ErrEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, blob.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	default:
		h.log.Error("store screenshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload screenshot"})
	}
}

// CaptureScreenshot renders the page around a comment position and stores
// the image. When no renderer is available the request is skipped rather
// than failed.
func (h *Handlers) CaptureScreenshot(c *gin.Context) {
	var in types.CaptureRequest
	if !bindJSON(c, &in) {
		return
	}
	if in.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}
	req, err := capture.NewRequest(in, h.captureSettings)
	if err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.capture.Capture(c.Request.Context(), req)
	if errors.Is(err, capture.ErrUnavailable) {
		c.JSON(http.StatusOK, gin.H{"success": false, "url": nil, "skipped": true})
		return
	}
	if err != nil {
		h.log.Warn("capture failed", zap.String("url", in.URL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to capture screenshot", "message": err.Error()})
		return
	}

	obj, err := h.blobs.SaveImage(c.Request.Context(), res.Image)
	if err != nil {
		h.uploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": obj.URL, "filename": obj.Name, "renderer": res.Renderer})
}

// ServeScreenshot streams a stored screenshot.
func (h *Handlers) ServeScreenshot(c *gin.Context) {
	f, err := h.blobs.Open(c.Param("name"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	http.ServeContent(c.Writer, c.Request, st.Name(), st.ModTime(), f)
}
