package campaign

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("campaign not found")

// Catalog holds the campaigns loaded from a data directory.
type Catalog struct {
	dataDir string

	mu        sync.RWMutex
	campaigns []Campaign
}

func NewCatalog(dataDir string) *Catalog {
	return &Catalog{dataDir: dataDir}
}

// Reload rereads the data directory. On error the previous campaigns stay.
func (c *Catalog) Reload() ([]Campaign, error) {
	cs, err := LoadCampaignsFromDataDir(c.dataDir)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.campaigns = cs
	c.mu.Unlock()
	return cs, nil
}

// Set replaces the campaigns without reading disk.
func (c *Catalog) Set(cs []Campaign) {
	c.mu.Lock()
	c.campaigns = cs
	c.mu.Unlock()
}

func (c *Catalog) All() []Campaign {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Campaign, len(c.campaigns))
	copy(out, c.campaigns)
	return out
}

func (c *Catalog) Get(id string) (Campaign, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cp := range c.campaigns {
		if cp.CampaignID == id {
			return cp, nil
		}
	}
	return Campaign{}, ErrNotFound
}
