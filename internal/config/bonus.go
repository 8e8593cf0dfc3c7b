package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"gopkg.in/yaml.v3"
)

// bonusFile is the YAML layout of the bonus table:
//
//	bonuses:
//	  2: {coins: 500, xp: 0, privilege: "clan.home"}
type bonusFile struct {
	Bonuses map[int]domain.Bonus `yaml:"bonuses"`
}

// defaultBonuses is used when no bonus file exists
var defaultBonuses = []domain.Bonus{
	{Level: 2, Coins: 500, Privilege: "clan.home"},
	{Level: 3, Coins: 1000, Privilege: "clan.chest"},
	{Level: 5, Coins: 2500, Privilege: "clan.war"},
	{Level: 10, Coins: 10000, Privilege: "clan.title"},
}

// LoadBonuses reads the level -> bonus table. A missing file falls back to defaults.
func LoadBonuses(path string) (map[int]domain.Bonus, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ Bonus file %s not found, using %d default bonuses", path, len(defaultBonuses))
		return DefaultBonuses(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bonus file: %w", err)
	}
	return ParseBonuses(data)
}

// ParseBonuses decodes a YAML bonus table
func ParseBonuses(data []byte) (map[int]domain.Bonus, error) {
	var f bonusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse bonus file: %w", err)
	}

	out := make(map[int]domain.Bonus, len(f.Bonuses))
	for level, b := range f.Bonuses {
		if level < 1 {
			return nil, fmt.Errorf("bonus level must be at least 1, got %d", level)
		}
		if b.Coins < 0 || b.XP < 0 {
			return nil, fmt.Errorf("bonus for level %d must not be negative", level)
		}
		b.Level = level
		out[level] = b
	}
	return out, nil
}

// DefaultBonuses returns a copy of the built-in bonus table
func DefaultBonuses() map[int]domain.Bonus {
	out := make(map[int]domain.Bonus, len(defaultBonuses))
	for _, b := range defaultBonuses {
		out[b.Level] = b
	}
	return out
}
