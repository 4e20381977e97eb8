package campaign

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultFontSize   = 24
	DefaultTextBottom = 0.12
)

var defaultTextColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

func parseListCell(s string) []string {
	s = strings.ReplaceAll(s, "|", "/")
	parts := strings.Split(s, "/")
	out := []string{}
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" && t != "-" {
			out = append(out, t)
		}
	}
	return out
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// LoadCampaignsFromDataDir loads campaign CSVs from a data directory.
// campaigns.csv is expected; campaigns_custom.csv is optional and its rows
// replace rows with the same campaign_id.
func LoadCampaignsFromDataDir(dataDir string) ([]Campaign, error) {
	files := []string{
		filepath.Join(dataDir, "campaigns.csv"),
		filepath.Join(dataDir, "campaigns_custom.csv"),
	}

	var all []Campaign
	index := map[string]int{}
	var found bool
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		found = true
		cs, err := loadSingleCSV(f)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
		for _, c := range cs {
			if i, ok := index[c.CampaignID]; ok {
				all[i] = c
				continue
			}
			index[c.CampaignID] = len(all)
			all = append(all, c)
		}
	}
	if !found {
		return nil, fmt.Errorf("no campaign CSVs found in %s", dataDir)
	}
	return all, nil
}

func loadSingleCSV(path string) ([]Campaign, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	r := csv.NewReader(fp)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("csv %s has no header", path)
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols["campaign_id"]; !ok {
		return nil, fmt.Errorf("csv %s has no campaign_id column", path)
	}

	get := func(row []string, name string) string {
		if idx, ok := cols[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	out := []Campaign{}
	for n, row := range rows[1:] {
		line := n + 2
		c := Campaign{
			CampaignID: get(row, "campaign_id"),
			EventID:    get(row, "event_id"),
			Title:      get(row, "title"),
			FrameURL:   get(row, "frame_url"),
			TextColor:  defaultTextColor,
			FontSize:   DefaultFontSize,
			TextBottom: DefaultTextBottom,
			Active:     true,
			Tags:       parseListCell(get(row, "tags")),
		}
		if c.CampaignID == "" {
			continue
		}
		if v := get(row, "text_color"); v != "" {
			if c.TextColor, err = parseHexColor(v); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if v := get(row, "glow_color"); v != "" {
			if c.GlowColor, err = parseHexColor(v); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if c.FontSize, err = parseFloat(get(row, "font_size"), DefaultFontSize); err != nil {
			return nil, fmt.Errorf("line %d: font_size: %w", line, err)
		}
		if c.TextBottom, err = parseFloat(get(row, "text_bottom"), DefaultTextBottom); err != nil {
			return nil, fmt.Errorf("line %d: text_bottom: %w", line, err)
		}
		if c.GlowRadius, err = parseFloat(get(row, "glow_radius"), 0); err != nil {
			return nil, fmt.Errorf("line %d: glow_radius: %w", line, err)
		}
		switch strings.ToLower(get(row, "active")) {
		case "false", "0", "no":
			c.Active = false
		}
		out = append(out, c)
	}
	return out, nil
}

func parseFloat(s string, def float64) (float64, error) {
	if s == "" || s == "-" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}
