package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/youruser/visualapp/internal/campaign"
)

func (h *Handler) listCampaigns(c *gin.Context) {
	opt := campaign.FilterOptions{ActiveOnly: c.Query("all") == ""}
	if ev := c.Query("event_id"); ev != "" {
		opt.EventIDs = strings.Split(ev, ",")
	}
	out := campaign.Filter(h.catalog.All(), opt)
	c.JSON(http.StatusOK, gin.H{"count": len(out), "campaigns": out})
}

func (h *Handler) filterCampaigns(c *gin.Context) {
	var opt campaign.FilterOptions
	if err := c.BindJSON(&opt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := campaign.Filter(h.catalog.All(), opt)
	c.JSON(http.StatusOK, gin.H{"count": len(out), "campaigns": out})
}

// reloadCampaigns rereads the campaign CSVs and drops decoded frames so
// changed artwork is fetched again.
func (h *Handler) reloadCampaigns(c *gin.Context) {
	previous := h.catalog.All()
	cs, err := h.catalog.Reload()
	if err != nil {
		requestLog(c).WithError(err).Error("campaign reload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for _, p := range previous {
		h.frames.Forget(c.Request.Context(), p.FrameURL)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(cs)})
}
