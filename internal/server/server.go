package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photokiosk/internal/booth"
	"photokiosk/internal/camera"
	"photokiosk/internal/cleanup"
	"photokiosk/internal/compositor"
	"photokiosk/internal/keyboard"
	"photokiosk/internal/logging"
	"photokiosk/internal/models"
	"photokiosk/internal/publisher"
)

const (
	maxPreviewFrameBytes = 8 << 20
	defaultQRSize        = 256
)

type Deps struct {
	Booth     *booth.Booth
	Publisher *publisher.Publisher
	Cleanup   *cleanup.Job
	// Device is set when the kiosk browser feeds the camera.
	Device *camera.PushDevice
}

type Server struct {
	cfg    *models.Config
	router *gin.Engine
	http   *http.Server
	deps   Deps
	log    zerolog.Logger
}

func NewServer(cfg *models.Config, deps Deps, log zerolog.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger(log))

	s := &Server{cfg: cfg, router: r, deps: deps, log: log}
	s.http = &http.Server{Addr: cfg.ServerAddr, Handler: r}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(publisher.SharePath, s.handleSharedPhoto)

	api := r.Group("/api")

	api.GET("/frames", s.handleListFrames)
	api.POST("/frames/refresh", s.handleRefreshFrames)
	api.POST("/frames/next", s.handleNextFrame)
	api.POST("/frames/prev", s.handlePrevFrame)

	api.GET("/camera", s.handleStatus)
	api.POST("/camera/open", s.handleOpenCamera)
	api.POST("/camera/close", s.handleCloseCamera)
	api.POST("/camera/mirror", s.handleMirror)
	api.GET("/camera/preview", s.handlePreview)
	if deps.Device != nil {
		api.PUT("/camera/permission", s.handlePermission)
		api.POST("/camera/frames", s.handlePushFrame)
	}

	api.POST("/capture", s.handleCapture)
	api.GET("/capture", s.handleCaptureResult)

	api.GET("/photo", s.handleGetPhoto)
	api.GET("/photo/download", s.handleDownloadPhoto)
	api.DELETE("/photo", s.handleRetake)
	api.POST("/photo/save", s.handleSavePhoto)
	api.POST("/photo/share", s.handleSharePhoto)

	api.GET("/photos/:id/qr", s.handleQRCode)
	api.GET("/photos/:id/thumbnail", s.handleThumbnail)

	api.GET("/keyboard/layout", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rows": keyboard.Layout()})
	})

	api.POST("/cleanup", s.handleCleanup)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.ServerAddr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// fail logs the raw error under op and answers with a kiosk notice.
func (s *Server) fail(c *gin.Context, op string, err error) {
	status, text := noticeFor(err)
	ev := s.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("op", op).Int("status", status).Msg("request failed")
	_ = c.Error(err)
	c.JSON(status, gin.H{"notice": text})
}

func (s *Server) badRequest(c *gin.Context, op string, err error) {
	s.log.Debug().Err(err).Str("op", op).Msg("bad request")
	c.JSON(http.StatusBadRequest, gin.H{"notice": "Geçersiz istek"})
}

func (s *Server) framesResponse(c *gin.Context, status int) {
	b := s.deps.Booth
	resp := gin.H{"frames": b.Frames(), "current": nil, "index": 0}
	if f, ok := b.CurrentFrame(); ok {
		resp["current"] = f
		resp["index"] = b.Status().FrameIndex
	}
	c.JSON(status, resp)
}

func (s *Server) handleListFrames(c *gin.Context) {
	s.framesResponse(c, http.StatusOK)
}

func (s *Server) handleRefreshFrames(c *gin.Context) {
	const op = "server.handleRefreshFrames"

	if _, err := s.deps.Booth.RefreshFrames(c.Request.Context()); err != nil {
		s.fail(c, op, err)
		return
	}
	s.framesResponse(c, http.StatusOK)
}

func (s *Server) handleNextFrame(c *gin.Context) {
	s.deps.Booth.NextFrame()
	s.framesResponse(c, http.StatusOK)
}

func (s *Server) handlePrevFrame(c *gin.Context) {
	s.deps.Booth.PrevFrame()
	s.framesResponse(c, http.StatusOK)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Booth.Status())
}

func (s *Server) handleOpenCamera(c *gin.Context) {
	const op = "server.handleOpenCamera"

	if err := s.deps.Booth.OpenCamera(c.Request.Context()); err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Booth.Status())
}

func (s *Server) handleCloseCamera(c *gin.Context) {
	s.deps.Booth.CloseCamera()
	c.Status(http.StatusNoContent)
}

type mirrorRequest struct {
	Mirrored *bool `json:"mirrored" binding:"required"`
}

func (s *Server) handleMirror(c *gin.Context) {
	const op = "server.handleMirror"

	var req mirrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, op, err)
		return
	}
	s.deps.Booth.SetMirrored(*req.Mirrored)
	c.JSON(http.StatusOK, s.deps.Booth.Status())
}

type permissionRequest struct {
	Granted *bool `json:"granted" binding:"required"`
	Present *bool `json:"present"`
}

func (s *Server) handlePermission(c *gin.Context) {
	const op = "server.handlePermission"

	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, op, err)
		return
	}
	s.deps.Device.SetPermission(*req.Granted)
	if req.Present != nil {
		s.deps.Device.SetPresent(*req.Present)
	}
	c.Status(http.StatusNoContent)
}

// handlePushFrame takes one raw JPEG or PNG preview frame from the browser.
func (s *Server) handlePushFrame(c *gin.Context) {
	const op = "server.handlePushFrame"

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxPreviewFrameBytes)
	img, err := imaging.Decode(body)
	if err != nil {
		s.badRequest(c, op, err)
		return
	}
	if err := s.deps.Device.Push(img); err != nil {
		s.fail(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePreview(c *gin.Context) {
	const op = "server.handlePreview"

	img, err := s.deps.Booth.PreviewFrame()
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Aspect-Ratio", strconv.FormatFloat(s.deps.Booth.PreviewAspectRatio(), 'f', 4, 64))
	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	if err := imaging.Encode(c.Writer, img, imaging.JPEG); err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("preview encode failed")
	}
}

type captureRequest struct {
	Delay int `json:"delay"`
}

func photoJSON(p *models.CapturedPhoto) gin.H {
	return gin.H{
		"image_data": p.ImageData,
		"frame_id":   p.FrameID,
		"frame_name": p.FrameName,
		"width":      p.Width,
		"height":     p.Height,
		"created_at": p.CreatedAt,
	}
}

func (s *Server) handleCapture(c *gin.Context) {
	const op = "server.handleCapture"

	var req captureRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, op, err)
			return
		}
	}

	armed, err := s.deps.Booth.TakePhoto(req.Delay)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	if armed && req.Delay == 0 {
		if photo, ok := s.deps.Booth.Photo(); ok {
			c.JSON(http.StatusCreated, photoJSON(photo))
			return
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"armed": armed, "countdown": s.deps.Booth.Status().Countdown})
}

// handleCaptureResult is polled while a countdown runs.
func (s *Server) handleCaptureResult(c *gin.Context) {
	const op = "server.handleCaptureResult"

	st := s.deps.Booth.Status()
	if st.Countdown.Counting {
		c.JSON(http.StatusAccepted, gin.H{"countdown": st.Countdown})
		return
	}
	if err := s.deps.Booth.LastCaptureError(); err != nil {
		s.fail(c, op, err)
		return
	}
	if photo, ok := s.deps.Booth.Photo(); ok {
		c.JSON(http.StatusOK, photoJSON(photo))
		return
	}
	s.fail(c, op, booth.ErrNoPhoto)
}

func (s *Server) handleGetPhoto(c *gin.Context) {
	const op = "server.handleGetPhoto"

	photo, ok := s.deps.Booth.Photo()
	if !ok {
		s.fail(c, op, booth.ErrNoPhoto)
		return
	}
	c.JSON(http.StatusOK, photoJSON(photo))
}

func (s *Server) handleDownloadPhoto(c *gin.Context) {
	const op = "server.handleDownloadPhoto"

	photo, ok := s.deps.Booth.Photo()
	if !ok {
		s.fail(c, op, booth.ErrNoPhoto)
		return
	}
	img, err := compositor.DecodeDataURL(photo.ImageData)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	name := fmt.Sprintf("hatira-%d.png", photo.CreatedAt.UnixMilli())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := imaging.Encode(c.Writer, img, imaging.PNG); err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("download encode failed")
	}
}

func (s *Server) handleRetake(c *gin.Context) {
	const op = "server.handleRetake"

	if err := s.deps.Booth.Retake(c.Request.Context()); err != nil {
		s.fail(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSavePhoto(c *gin.Context) {
	const op = "server.handleSavePhoto"

	id, err := s.deps.Booth.Save(c.Request.Context())
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.String()})
}

func (s *Server) handleSharePhoto(c *gin.Context) {
	const op = "server.handleSharePhoto"

	link, err := s.deps.Booth.Share(c.Request.Context())
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         link.PhotoID.String(),
		"url":        link.URL,
		"expires_at": link.ExpiresAt,
		"qr_url":     "/api/photos/" + link.PhotoID.String() + "/qr",
	})
}

func (s *Server) resolveParam(c *gin.Context, op string) (*models.SavedPhoto, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, op, publisher.ErrNotFound)
		return nil, false
	}
	rec, err := s.deps.Publisher.Resolve(c.Request.Context(), id)
	if err != nil {
		s.fail(c, op, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) handleQRCode(c *gin.Context) {
	const op = "server.handleQRCode"

	rec, ok := s.resolveParam(c, op)
	if !ok {
		return
	}
	size := defaultQRSize
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 1024 {
			s.badRequest(c, op, fmt.Errorf("qr size %q", v))
			return
		}
		size = n
	}
	png, err := publisher.QRCode(publisher.ShareURL(s.cfg.PublicOrigin, rec.ID), size)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) handleThumbnail(c *gin.Context) {
	const op = "server.handleThumbnail"

	rec, ok := s.resolveParam(c, op)
	if !ok {
		return
	}
	if rec.ThumbnailData == "" {
		c.JSON(http.StatusNotFound, gin.H{"notice": "Küçük resim henüz hazır değil"})
		return
	}
	img, err := compositor.DecodeDataURL(rec.ThumbnailData)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := imaging.Encode(c.Writer, img, imaging.PNG); err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("thumbnail encode failed")
	}
}

// handleSharedPhoto resolves a scanned share link.
func (s *Server) handleSharedPhoto(c *gin.Context) {
	const op = "server.handleSharedPhoto"

	id, err := uuid.Parse(c.Query("id"))
	if err != nil {
		s.fail(c, op, publisher.ErrNotFound)
		return
	}
	rec, err := s.deps.Publisher.Resolve(c.Request.Context(), id)
	if err != nil {
		s.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         rec.ID.String(),
		"image_data": rec.ImageData,
		"frame_name": rec.FrameName,
		"created_at": rec.CreatedAt,
		"expires_at": rec.ShareExpiresAt,
	})
}

func (s *Server) handleCleanup(c *gin.Context) {
	const op = "server.handleCleanup"

	res, err := s.deps.Cleanup.Run(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("cleanup failed")
		c.JSON(http.StatusInternalServerError, cleanup.Result{Success: false, Message: "Cleanup failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}
