package visual

import (
	"fmt"
	"strings"
	"time"
)

// Visual is an exported "I'll be there" image and where it was stored.
type Visual struct {
	ID              string    `json:"id"`
	CampaignID      string    `json:"campaign_id"`
	SessionToken    string    `json:"-"`
	ParticipantName string    `json:"participant_name"`
	StorageKey      string    `json:"-"`
	ImageURL        string    `json:"image_url"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	CreatedAt       time.Time `json:"created_at"`
}

// ShareCaption is the text offered next to the share button.
func ShareCaption(v Visual, campaignTitle string, tags []string) string {
	lines := []string{}
	if v.ParticipantName != "" {
		lines = append(lines, fmt.Sprintf("%s will be there!", v.ParticipantName))
	} else {
		lines = append(lines, "I'll be there!")
	}
	if campaignTitle != "" {
		lines = append(lines, campaignTitle)
	}
	hashtags := []string{}
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), "")
		if t != "" {
			hashtags = append(hashtags, "#"+t)
		}
	}
	if len(hashtags) > 0 {
		lines = append(lines, strings.Join(hashtags, " "))
	}
	lines = append(lines, v.ImageURL)
	return strings.Join(lines, "\n")
}
