package catalog

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// LoadFile decodes a TOML catalog definition file.
//
//	[[items]]
//	id = "avatar-bolt"
//	name = "Bolt Avatar"
//	cost_points = 150
//	value_points = 180
//	rarity = "RARE"
//
//	[[badges]]
//	id = "charger-10"
//	status = "ACTIVE"
//	criteria = { source_counter = "checkIns", threshold = 10 }
func LoadFile(path string) (domain.Catalog, error) {
	var c domain.Catalog
	if _, err := os.Stat(path); err != nil {
		return c, fmt.Errorf("catalog file: %w", err)
	}

	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return c, fmt.Errorf("parse catalog file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return c, domain.Validationf("unknown catalog keys: %v", undecoded)
	}

	for i := range c.Badges {
		if c.Badges[i].Status == "" {
			c.Badges[i].Status = domain.StatusActive
		}
	}
	for i := range c.Quests {
		if c.Quests[i].Status == "" {
			c.Quests[i].Status = domain.StatusActive
		}
	}
	for i := range c.Items {
		if c.Items[i].Rarity == "" {
			c.Items[i].Rarity = domain.RarityCommon
		}
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	c.Sort()
	return c, nil
}
