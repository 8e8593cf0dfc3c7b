package services

import (
	"sort"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

// WarTopLimit caps the war points leaderboard
const WarTopLimit = 10

// MemberStats is a member's personal record inside its clan
type MemberStats struct {
	ActorID      uuid.UUID   `json:"actor_id"`
	Clan         string      `json:"clan"`
	Rank         domain.Rank `json:"rank"`
	Kills        int         `json:"kills"`
	Deaths       int         `json:"deaths"`
	DailyKills   int         `json:"daily_kills"`
	PlayerPoints float64     `json:"player_points"`
}

// GetClanByName returns a copy of the named clan
func (s *ClanService) GetClanByName(name string) (*domain.Clan, bool) {
	var out *domain.Clan
	ok := s.viewClan(name, func(c *domain.Clan) { out = c.Clone() })
	return out, ok
}

// GetClanByActor returns a copy of the actor's clan
func (s *ClanService) GetClanByActor(actorID uuid.UUID) (*domain.Clan, bool) {
	var out *domain.Clan
	ok := s.viewActorClan(actorID, func(c *domain.Clan) { out = c.Clone() })
	return out, ok
}

// ClanName returns the display name of the actor's clan
func (s *ClanService) ClanName(actorID uuid.UUID) (string, bool) {
	var name string
	ok := s.viewActorClan(actorID, func(c *domain.Clan) { name = c.Name })
	return name, ok
}

// ListClans returns every clan display name ordered by key
func (s *ClanService) ListClans() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.clans))
	for key := range s.clans {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		e := s.clans[key]
		e.mu.Lock()
		names = append(names, e.clan.Name)
		e.mu.Unlock()
	}
	return names
}

// Count returns the number of clans
func (s *ClanService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clans)
}

// Snapshot returns a deep copy of the registry keyed by normalized name
func (s *ClanService) Snapshot() map[string]*domain.Clan {
	return s.snapshotAll()
}

func (s *ClanService) sortedClans(less func(a, b *domain.Clan) bool, limit int) []*domain.Clan {
	clans := make([]*domain.Clan, 0)
	for _, c := range s.snapshotAll() {
		clans = append(clans, c)
	}
	sort.SliceStable(clans, func(i, j int) bool { return less(clans[i], clans[j]) })
	if limit > 0 && len(clans) > limit {
		clans = clans[:limit]
	}
	return clans
}

// TopByLevel ranks clans by level, then xp, then name. limit <= 0 returns all.
func (s *ClanService) TopByLevel(limit int) []*domain.Clan {
	return s.sortedClans(func(a, b *domain.Clan) bool {
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.XP != b.XP {
			return a.XP > b.XP
		}
		return a.Key() < b.Key()
	}, limit)
}

// TopByWarPoints returns the ten clans with the most war points
func (s *ClanService) TopByWarPoints() []*domain.Clan {
	return s.sortedClans(func(a, b *domain.Clan) bool {
		if a.WarPoints != b.WarPoints {
			return a.WarPoints > b.WarPoints
		}
		return a.Key() < b.Key()
	}, WarTopLimit)
}

// TopFirst returns the highest ranked clan by level
func (s *ClanService) TopFirst() (*domain.Clan, bool) {
	top := s.TopByLevel(1)
	if len(top) == 0 {
		return nil, false
	}
	return top[0], true
}

// Leader returns the leader of the named clan
func (s *ClanService) Leader(name string) (uuid.UUID, error) {
	var leader uuid.UUID
	if !s.viewClan(name, func(c *domain.Clan) { leader = c.Leader() }) {
		return uuid.Nil, domain.ErrClanNotFound
	}
	return leader, nil
}

// RankOf returns the actor's rank in its clan
func (s *ClanService) RankOf(actorID uuid.UUID) (domain.Rank, bool) {
	var rank domain.Rank
	ok := s.viewActorClan(actorID, func(c *domain.Clan) {
		if m, found := c.Member(actorID); found {
			rank = m.Rank
		}
	})
	return rank, ok && rank != ""
}

// Stats returns the actor's personal counters
func (s *ClanService) Stats(actorID uuid.UUID) (MemberStats, error) {
	var stats MemberStats
	ok := s.viewActorClan(actorID, func(c *domain.Clan) {
		stats = MemberStats{
			ActorID:      actorID,
			Clan:         c.Name,
			Rank:         c.Members[actorID].Rank,
			Kills:        c.Kills[actorID],
			Deaths:       c.Deaths[actorID],
			DailyKills:   c.DailyKills[actorID],
			PlayerPoints: c.PlayerPoints[actorID],
		}
	})
	if !ok {
		return MemberStats{}, domain.ErrNotInClan
	}
	return stats, nil
}

// ActivityStatus buckets how long ago the named clan was last active
func (s *ClanService) ActivityStatus(name string) (domain.Activity, error) {
	var activity domain.Activity
	now := s.now()
	if !s.viewClan(name, func(c *domain.Clan) { activity = domain.ActivitySince(c.LastActivity, now) }) {
		return domain.Activity{}, domain.ErrClanNotFound
	}
	return activity, nil
}

// Bonus returns the reward granted at level
func (s *ClanService) Bonus(level int) (domain.Bonus, bool) {
	return s.bonuses.For(level)
}

// Bonuses returns the whole bonus table
func (s *ClanService) Bonuses() []domain.Bonus {
	return s.bonuses.All()
}
