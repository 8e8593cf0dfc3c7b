package services

import (
	"sort"

	"github.com/4rubka/ClanMaster/internal/core/domain"
)

// BonusService exposes the read-only level -> bonus table
type BonusService struct {
	bonuses map[int]domain.Bonus
}

// NewBonusService copies table so later changes by the caller are not visible
func NewBonusService(table map[int]domain.Bonus) *BonusService {
	bonuses := make(map[int]domain.Bonus, len(table))
	for level, b := range table {
		b.Level = level
		bonuses[level] = b
	}
	return &BonusService{bonuses: bonuses}
}

// For returns the bonus granted on reaching level
func (s *BonusService) For(level int) (domain.Bonus, bool) {
	if s == nil {
		return domain.Bonus{}, false
	}
	b, ok := s.bonuses[level]
	return b, ok
}

// All returns the table ordered by level
func (s *BonusService) All() []domain.Bonus {
	if s == nil {
		return nil
	}
	out := make([]domain.Bonus, 0, len(s.bonuses))
	for _, b := range s.bonuses {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}
