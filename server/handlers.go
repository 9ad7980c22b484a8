package server

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/inference"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var supportedTypes = []string{"image/jpeg", "image/png", "image/bmp", "image/webp", "image/gif"}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.build.Version,
		"cache":   s.cache.Enabled(),
	})
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, s.build)
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.prof.Snapshot())
}

// detect accepts a raw or base64 encoded image body.
func (s *Server) detect(c *gin.Context) {
	data, err := s.readBody(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.detectImage(c, data)
}

// detectUpload accepts a multipart form with the image in field "image".
func (s *Server) detectUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodySize)

	file, err := c.FormFile("image")
	if err != nil {
		s.writeError(c, errdefs.InvalidInput("missing image upload: %v", err))
		return
	}
	f, err := file.Open()
	if err != nil {
		s.writeError(c, errdefs.InvalidInput("open upload: %v", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.writeError(c, errdefs.InvalidInput("read upload: %v", err))
		return
	}
	s.detectImage(c, data)
}

func (s *Server) detectImage(c *gin.Context, data []byte) {
	ctx := c.Request.Context()

	if err := checkImageType(data); err != nil {
		s.writeError(c, err)
		return
	}

	checksum := images.ComputeChecksum(data)
	if detections, ok := s.cache.GetDetections(ctx, checksum); ok {
		c.Header("X-Cache", "hit")
		c.JSON(http.StatusOK, detections)
		return
	}

	frame, err := images.DecodeFrame(data, images.ChannelOrderBGR)
	if err != nil {
		s.writeError(c, err)
		return
	}

	detections, err := s.pipeline.Detect(ctx, frame)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.cache.SetDetections(ctx, checksum, detections)
	c.Header("X-Cache", "miss")
	c.JSON(http.StatusOK, detections)
}

// segment returns the frame with the class overlay as a JPEG.
func (s *Server) segment(c *gin.Context) {
	data, err := s.readBody(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := checkImageType(data); err != nil {
		s.writeError(c, err)
		return
	}

	frame, err := images.DecodeFrame(data, images.ChannelOrderBGR)
	if err != nil {
		s.writeError(c, err)
		return
	}

	res, err := s.pipeline.Segment(c.Request.Context(), frame)
	if err != nil {
		s.writeError(c, err)
		return
	}

	encoded, err := images.Encode(res.Frame, images.FormatJPEG)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("X-Segment-Classes", strings.Join(res.Classes, ","))
	c.Data(http.StatusOK, "image/jpeg", encoded)
}

// readBody reads a size-limited request body and decodes it when it is base64 text, optionally as a
// data URL.
func (s *Server) readBody(c *gin.Context) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodySize))
	if err != nil {
		return nil, errdefs.InvalidInput("read body: %v", err)
	}
	if len(data) == 0 {
		return nil, errdefs.InvalidInput("request body is empty")
	}

	if checkImageType(data) == nil || !strings.HasPrefix(mimetype.Detect(data).String(), "text/") {
		return data, nil
	}

	text := string(bytes.TrimSpace(data))
	if i := strings.Index(text, ";base64,"); strings.HasPrefix(text, "data:") && i >= 0 {
		text = text[i+len(";base64,"):]
	}
	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, errdefs.InvalidInput("body is neither an image nor base64: %v", err)
	}
	return decoded, nil
}

func checkImageType(data []byte) error {
	mt := mimetype.Detect(data)
	for _, t := range supportedTypes {
		if mt.Is(t) {
			return nil
		}
	}
	return errdefs.InvalidInput("unsupported content type %s", mt.String())
}

// writeError maps error kinds to status codes: invalid input 400, engine 502, a full, closed or
// draining task queue 503, everything else 500.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errdefs.Is(err, errdefs.ErrInvalidInput):
		status = http.StatusBadRequest
	case errdefs.Is(err, errdefs.ErrEngine):
		status = http.StatusBadGateway
	case errors.Is(err, inference.ErrQueueFull),
		errors.Is(err, inference.ErrQueueClosed),
		errors.Is(err, inference.ErrCancelled):
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "1")
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}
