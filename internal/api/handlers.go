package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/youruser/visualapp/internal/campaign"
	"github.com/youruser/visualapp/internal/events"
	imagepkg "github.com/youruser/visualapp/internal/image"
	"github.com/youruser/visualapp/internal/storage"
	"github.com/youruser/visualapp/internal/visual"
)

// Deps are the collaborators a Handler needs.
type Deps struct {
	Catalog     *campaign.Catalog
	Frames      *imagepkg.FrameLoader
	Sessions    *imagepkg.SessionStore
	Visuals     visual.Repository
	Files       storage.FileStorage
	Publisher   events.Publisher
	MediaDir    string
	ExportScale int
	MaxScale    int
}

type Handler struct {
	catalog     *campaign.Catalog
	frames      *imagepkg.FrameLoader
	sessions    *imagepkg.SessionStore
	visuals     visual.Repository
	files       storage.FileStorage
	publisher   events.Publisher
	mediaDir    string
	exportScale int
	maxScale    int
	now         func() time.Time
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		catalog:     d.Catalog,
		frames:      d.Frames,
		sessions:    d.Sessions,
		visuals:     d.Visuals,
		files:       d.Files,
		publisher:   d.Publisher,
		mediaDir:    d.MediaDir,
		exportScale: d.ExportScale,
		maxScale:    d.MaxScale,
		now:         time.Now,
	}
	if h.exportScale < 1 {
		h.exportScale = imagepkg.ExportScale
	}
	if h.maxScale < h.exportScale {
		h.maxScale = h.exportScale
	}
	return h
}

// health
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// qrHandler returns a PNG QR code of the ticket code, scanned at the door.
func qrHandler(c *gin.Context) {
	code := c.Param("code")
	size := imagepkg.DefaultQRSize
	if v, err := strconv.Atoi(c.Query("size")); err == nil {
		size = v
	}
	b, err := imagepkg.GenerateQRPNG(code, size)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

// renderError maps composer failures to responses. Decode failures are the
// caller's to fix; anything else is ours.
func renderError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, imagepkg.ErrDecode):
		log.WithError(err).Info("image rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "We couldn't read that image. Please choose a different file."})
	case errors.Is(err, imagepkg.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, imagepkg.ErrRenderUnavailable):
		log.WithError(err).Error("render failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render unavailable"})
	default:
		log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func requestLog(c *gin.Context) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"session": sessionToken(c),
		"path":    c.FullPath(),
	})
}
