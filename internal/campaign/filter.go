package campaign

import "strings"

type FilterOptions struct {
	EventIDs   []string `json:"event_ids"`
	Tags       []string `json:"tags"`
	FreeWords  string   `json:"free_words"`
	ActiveOnly bool     `json:"active_only"`
}

func containsAny(hay []string, needles []string) bool {
	for _, n := range needles {
		for _, h := range hay {
			if strings.EqualFold(h, n) {
				return true
			}
		}
	}
	return false
}

func Filter(campaigns []Campaign, opt FilterOptions) []Campaign {
	out := []Campaign{}
	for _, c := range campaigns {
		if opt.ActiveOnly && !c.Active {
			continue
		}
		if len(opt.EventIDs) > 0 && !containsAny([]string{c.EventID}, opt.EventIDs) {
			continue
		}
		if len(opt.Tags) > 0 && !containsAny(c.Tags, opt.Tags) {
			continue
		}
		if opt.FreeWords != "" {
			ok := true
			hay := strings.ToLower(c.Title + " " + strings.Join(c.Tags, " "))
			for _, k := range strings.Fields(opt.FreeWords) {
				if !strings.Contains(hay, strings.ToLower(k)) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
