package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/youruser/visualapp/internal/campaign"
	"github.com/youruser/visualapp/internal/events"
	imagepkg "github.com/youruser/visualapp/internal/image"
	"github.com/youruser/visualapp/internal/storage"
	"github.com/youruser/visualapp/internal/visual"
)

type composeRequest struct {
	CampaignID string   `json:"campaign_id"`
	Zoom       *float64 `json:"zoom"`
	OffsetX    *float64 `json:"offset_x"`
	OffsetY    *float64 `json:"offset_y"`
	Name       *string  `json:"name"`
}

// uploadPhoto replaces the session photo with the multipart "photo" file.
func (h *Handler) uploadPhoto(c *gin.Context) {
	log := requestLog(c)
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photo provided"})
		return
	}

	sess := h.sessions.Get(sessionToken(c))
	err = sess.SetSource(c.Request.Context(), func(context.Context) (*imagepkg.SourceImage, error) {
		f, err := file.Open()
		if err != nil {
			return nil, &imagepkg.DecodeError{Source: file.Filename, Err: err}
		}
		defer f.Close()
		return imagepkg.DecodeImage(file.Filename, f)
	})
	if err != nil {
		renderError(c, log, err)
		return
	}

	src := sess.Snapshot().Source
	log.WithFields(logrus.Fields{"width": src.Width, "height": src.Height, "format": src.Format}).Info("photo set")
	c.JSON(http.StatusOK, gin.H{"width": src.Width, "height": src.Height, "format": src.Format})
}

// updateCompose applies campaign, transform and name changes and returns
// the new preview. Fields left out keep their current value.
func (h *Handler) updateCompose(c *gin.Context) {
	log := requestLog(c)
	var req composeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := h.sessions.Get(sessionToken(c))
	snap := sess.Snapshot()

	campaignID := req.CampaignID
	if campaignID == "" {
		campaignID = snap.CampaignID
	}
	if campaignID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "campaign_id is required"})
		return
	}
	cp, err := h.catalog.Get(campaignID)
	if errors.Is(err, campaign.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log = log.WithField("campaign", campaignID)

	var frame *imagepkg.FrameAsset
	if campaignID != snap.CampaignID || snap.Frame == nil {
		frame, err = h.frames.Load(c.Request.Context(), cp.FrameURL)
		if err != nil {
			log.WithError(err).Error("frame unavailable")
			c.JSON(http.StatusBadGateway, gin.H{"error": "campaign frame unavailable"})
			return
		}
	}

	// merge against the current state, not the snapshot above: another
	// update or a new photo may have landed while the frame loaded
	sess.Update(func(st *imagepkg.Snapshot) {
		if frame != nil {
			st.CampaignID = campaignID
			st.Frame = frame
		}
		t := st.Transform
		if req.Zoom != nil {
			t.Zoom = *req.Zoom
		}
		if req.OffsetX != nil {
			t.OffsetX = *req.OffsetX
		}
		if req.OffsetY != nil {
			t.OffsetY = *req.OffsetY
		}
		st.Transform = t.Clamped()

		if st.CampaignID != campaignID {
			return
		}
		if req.Name != nil {
			st.Text = cp.TextOverlay(*req.Name)
		} else if st.Text != nil {
			// re-style the current name for the (possibly new) campaign
			st.Text = cp.TextOverlay(st.Text.Value)
		}
	})

	h.writePreview(c, log, sess)
}

func (h *Handler) previewCompose(c *gin.Context) {
	h.writePreview(c, requestLog(c), h.sessions.Get(sessionToken(c)))
}

func (h *Handler) writePreview(c *gin.Context, log *logrus.Entry, sess *imagepkg.Session) {
	b, err := sess.Preview()
	if err != nil {
		renderError(c, log, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", b)
}

// exportCompose renders the session at export resolution. With download=1
// the PNG is returned as an attachment; otherwise it is stored, recorded
// and announced, and the visual record is returned.
func (h *Handler) exportCompose(c *gin.Context) {
	log := requestLog(c)
	scale := h.exportScale
	if v := c.Query("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > h.maxScale {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("scale must be between 1 and %d", h.maxScale)})
			return
		}
		scale = n
	}

	sess := h.sessions.Get(sessionToken(c))
	data, snap, err := sess.Export(scale)
	if err != nil {
		renderError(c, log, err)
		return
	}
	target := imagepkg.PreviewTarget.Scale(scale)
	if snap.Source != nil {
		crop := imagepkg.CropWindow(target, snap.Source.Width, snap.Source.Height, snap.Transform)
		log = log.WithFields(logrus.Fields{"crop_x": crop.X, "crop_y": crop.Y, "crop_w": crop.W, "crop_h": crop.H})
	}
	log = log.WithFields(logrus.Fields{"campaign": snap.CampaignID, "width": target.Width, "height": target.Height})

	if c.Query("download") != "" {
		log.Info("visual downloaded")
		c.Header("Content-Disposition", `attachment; filename="ill-be-there.png"`)
		c.Data(http.StatusOK, "image/png", data)
		return
	}

	if snap.Source == nil || snap.CampaignID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "choose a campaign and add a photo before sharing"})
		return
	}

	v := visual.Visual{
		ID:           uuid.NewString(),
		CampaignID:   snap.CampaignID,
		SessionToken: sess.Token,
		Width:        target.Width,
		Height:       target.Height,
		CreatedAt:    h.now().UTC(),
	}
	if snap.Text != nil {
		v.ParticipantName = snap.Text.Value
	}
	v.StorageKey = fmt.Sprintf("visuals/%s/%s.png", v.CampaignID, v.ID)
	if err := storage.SaveBytes(h.files, v.StorageKey, data); err != nil {
		log.WithError(err).Error("store visual")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store visual"})
		return
	}
	v.ImageURL = h.files.PublicURL(v.StorageKey)

	ctx := c.Request.Context()
	if err := h.visuals.Create(ctx, &v); err != nil {
		log.WithError(err).Error("record visual")
		if derr := h.files.Delete(v.StorageKey); derr != nil {
			log.WithError(derr).Warn("remove orphaned visual")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save visual"})
		return
	}

	cp, _ := h.catalog.Get(v.CampaignID)
	if err := h.publisher.Publish(ctx, events.TopicVisualCreated, v.ID, events.VisualCreated{
		VisualID:     v.ID,
		CampaignID:   v.CampaignID,
		EventID:      cp.EventID,
		SessionToken: v.SessionToken,
		ImageURL:     v.ImageURL,
		CreatedAt:    v.CreatedAt,
	}); err != nil {
		log.WithError(err).Warn("publish visual.created")
	}

	log.WithField("visual", v.ID).Info("visual exported")
	c.JSON(http.StatusCreated, gin.H{
		"visual":        v,
		"share_caption": visual.ShareCaption(v, cp.Title, cp.Tags),
	})
}

func (h *Handler) getVisual(c *gin.Context) {
	v, err := h.visuals.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, visual.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Visual not found"})
		return
	}
	if err != nil {
		renderError(c, requestLog(c), err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) listCampaignVisuals(c *gin.Context) {
	limit := 20
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	vs, err := h.visuals.ListByCampaign(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		renderError(c, requestLog(c), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(vs), "visuals": vs})
}
