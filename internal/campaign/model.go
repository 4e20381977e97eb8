package campaign

import (
	"image/color"

	imagepkg "github.com/youruser/visualapp/internal/image"
)

// Campaign configures the visual attendees of one event can generate.
type Campaign struct {
	CampaignID string      `json:"campaign_id"`
	EventID    string      `json:"event_id"`
	Title      string      `json:"title"`
	FrameURL   string      `json:"frame_url"`
	TextColor  color.NRGBA `json:"-"`
	FontSize   float64     `json:"font_size"`
	TextBottom float64     `json:"text_bottom"`
	GlowColor  color.NRGBA `json:"-"`
	GlowRadius float64     `json:"glow_radius"`
	Active     bool        `json:"active"`
	Tags       []string    `json:"tags"`
}

// TextOverlay builds the name label for a participant. An empty name
// yields nil.
func (c Campaign) TextOverlay(name string) *imagepkg.TextOverlay {
	if name == "" {
		return nil
	}
	return &imagepkg.TextOverlay{
		Value:      name,
		Bottom:     c.TextBottom,
		FontSize:   c.FontSize,
		Color:      c.TextColor,
		GlowColor:  c.GlowColor,
		GlowRadius: c.GlowRadius,
	}
}
