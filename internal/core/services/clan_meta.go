package services

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

// Text limits for clan metadata
const (
	MaxPrefixLength      = 16
	MaxTitleLength       = 64
	MaxDescriptionLength = 255
	MaxMotdLength        = 255
	MaxHomeLength        = 255
)

func checkText(value string, limit int) (string, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > limit {
		return "", domain.ErrTextTooLong
	}
	return value, nil
}

// leaderEdit runs fn on the actor's clan when the actor is its LEADER
func (s *ClanService) leaderEdit(actorID uuid.UUID, fn func(c *domain.Clan) error) error {
	return s.mutateActorClan(actorID, func(c *domain.Clan, m *domain.Member) error {
		if err := requireLeader(m); err != nil {
			return err
		}
		return fn(c)
	})
}

// ============================================================
// Metadata
// ============================================================

// SetPrefix changes the chat prefix. LEADER only.
func (s *ClanService) SetPrefix(actorID uuid.UUID, prefix string) error {
	prefix, err := checkText(prefix, MaxPrefixLength)
	if err != nil {
		return err
	}
	return s.leaderEdit(actorID, func(c *domain.Clan) error {
		c.Prefix = prefix
		return nil
	})
}

// SetDescription changes the description. LEADER only.
func (s *ClanService) SetDescription(actorID uuid.UUID, desc string) error {
	desc, err := checkText(desc, MaxDescriptionLength)
	if err != nil {
		return err
	}
	return s.leaderEdit(actorID, func(c *domain.Clan) error {
		c.Description = desc
		return nil
	})
}

// SetTitle changes the title. LEADER only.
func (s *ClanService) SetTitle(actorID uuid.UUID, title string) error {
	title, err := checkText(title, MaxTitleLength)
	if err != nil {
		return err
	}
	return s.leaderEdit(actorID, func(c *domain.Clan) error {
		c.Title = title
		return nil
	})
}

// SetMotd changes the message of the day. LEADER or OFFICER.
func (s *ClanService) SetMotd(actorID uuid.UUID, motd string) error {
	motd, err := checkText(motd, MaxMotdLength)
	if err != nil {
		return err
	}
	return s.mutateActorClan(actorID, func(c *domain.Clan, m *domain.Member) error {
		if m.Rank == domain.RankMember {
			return domain.ErrNoPermission
		}
		c.Motd = motd
		return nil
	})
}

// SetHome stores a serialized location. LEADER only.
func (s *ClanService) SetHome(actorID uuid.UUID, location string) error {
	location, err := checkText(location, MaxHomeLength)
	if err != nil {
		return err
	}
	if location == "" {
		return domain.ErrEmptyValue
	}
	return s.leaderEdit(actorID, func(c *domain.Clan) error {
		c.Home = location
		return nil
	})
}

// DelHome clears the home location. LEADER only.
func (s *ClanService) DelHome(actorID uuid.UUID) error {
	return s.leaderEdit(actorID, func(c *domain.Clan) error {
		if c.Home == "" {
			return domain.ErrNoHome
		}
		c.Home = ""
		return nil
	})
}

// Home returns the home location of the actor's clan
func (s *ClanService) Home(actorID uuid.UUID) (string, error) {
	var home string
	if !s.viewActorClan(actorID, func(c *domain.Clan) { home = c.Home }) {
		return "", domain.ErrNotInClan
	}
	if home == "" {
		return "", domain.ErrNoHome
	}
	return home, nil
}

// TogglePvp flips friendly fire and returns the new value. LEADER only.
func (s *ClanService) TogglePvp(actorID uuid.UUID) (bool, error) {
	var enabled bool
	err := s.leaderEdit(actorID, func(c *domain.Clan) error {
		c.FriendlyFire = !c.FriendlyFire
		enabled = c.FriendlyFire
		return nil
	})
	return enabled, err
}

// ============================================================
// Achievements
// ============================================================

func normalizeAchievement(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", domain.ErrEmptyValue
	}
	if utf8.RuneCountInString(name) > MaxTitleLength {
		return "", domain.ErrTextTooLong
	}
	return name, nil
}

// AddAchievement unlocks an achievement for the actor's clan. LEADER only.
func (s *ClanService) AddAchievement(actorID uuid.UUID, achievement string) error {
	achievement, err := normalizeAchievement(achievement)
	if err != nil {
		return err
	}
	return s.leaderEdit(actorID, func(c *domain.Clan) error {
		if !c.Achievements.Add(achievement) {
			return domain.ErrAchievementExists
		}
		return nil
	})
}

// GrantAchievement unlocks an achievement for the named clan
func (s *ClanService) GrantAchievement(name, achievement string) error {
	achievement, err := normalizeAchievement(achievement)
	if err != nil {
		return err
	}
	return s.mutateClan(name, func(c *domain.Clan) error {
		if !c.Achievements.Add(achievement) {
			return domain.ErrAchievementExists
		}
		return nil
	})
}

// HasAchievement reports whether the named clan unlocked achievement
func (s *ClanService) HasAchievement(name, achievement string) bool {
	key := strings.ToLower(strings.TrimSpace(achievement))
	has := false
	s.viewClan(name, func(c *domain.Clan) { has = c.Achievements.Has(key) })
	return has
}

// ============================================================
// Chests
// ============================================================

// chestOwnerLocked returns the key of the clan holding the chest. Caller holds mu.
func (s *ClanService) chestOwnerLocked(chest string) (string, bool) {
	for key, e := range s.clans {
		if e.clan.LockedChests.Has(chest) {
			return key, true
		}
	}
	return "", false
}

// LockChest claims a chest for the actor's clan. A chest belongs to at most one clan.
func (s *ClanService) LockChest(actorID uuid.UUID, chest string) error {
	chest = strings.TrimSpace(chest)
	if chest == "" {
		return domain.ErrEmptyValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clan, _, err := s.actorClanLocked(actorID)
	if err != nil {
		return err
	}
	if _, locked := s.chestOwnerLocked(chest); locked {
		return domain.ErrChestLocked
	}
	clan.LockedChests.Add(chest)
	s.persister.MarkDirty(clan.Key())
	return nil
}

// UnlockChest releases a chest held by the actor's clan
func (s *ClanService) UnlockChest(actorID uuid.UUID, chest string) error {
	chest = strings.TrimSpace(chest)

	s.mu.Lock()
	defer s.mu.Unlock()

	clan, _, err := s.actorClanLocked(actorID)
	if err != nil {
		return err
	}
	if !clan.LockedChests.Remove(chest) {
		return domain.ErrChestNotLocked
	}
	s.persister.MarkDirty(clan.Key())
	return nil
}

// CanAccessChest reports whether the actor may open a chest: unlocked chests are
// open to everyone, locked ones only to the owning clan.
func (s *ClanService) CanAccessChest(actorID uuid.UUID, chest string) bool {
	chest = strings.TrimSpace(chest)

	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, locked := s.chestOwnerLocked(chest)
	if !locked {
		return true
	}
	return s.members[actorID] == owner
}

// ChestOwner returns the display name of the clan holding the chest
func (s *ClanService) ChestOwner(chest string) (string, bool) {
	chest = strings.TrimSpace(chest)

	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, locked := s.chestOwnerLocked(chest)
	if !locked {
		return "", false
	}
	e := s.clans[owner]
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clan.Name, true
}

// ============================================================
// Chat
// ============================================================

// ToggleClanChat switches the actor between public and clan chat
func (s *ClanService) ToggleClanChat(actorID uuid.UUID) (bool, error) {
	if _, ok := s.ClanName(actorID); !ok {
		return false, domain.ErrNotInClan
	}
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()
	if _, on := s.chatters[actorID]; on {
		delete(s.chatters, actorID)
		return false, nil
	}
	s.chatters[actorID] = struct{}{}
	return true, nil
}

// IsClanChat reports whether the actor talks in clan chat
func (s *ClanService) IsClanChat(actorID uuid.UUID) bool {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()
	_, on := s.chatters[actorID]
	return on
}

// ToggleSpy switches cross-clan chat spying for the actor
func (s *ClanService) ToggleSpy(actorID uuid.UUID) bool {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()
	if _, on := s.spies[actorID]; on {
		delete(s.spies, actorID)
		return false
	}
	s.spies[actorID] = struct{}{}
	return true
}

// SpyViewers returns the actors spying on clan chat
func (s *ClanService) SpyViewers() []uuid.UUID {
	s.toggleMu.Lock()
	out := make([]uuid.UUID, 0, len(s.spies))
	for id := range s.spies {
		out = append(out, id)
	}
	s.toggleMu.Unlock()
	sortIDs(out)
	return out
}

// ChatRecipients lists who receives a clan chat line from the actor:
// every clan member plus the spies.
func (s *ClanService) ChatRecipients(actorID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	ok := s.viewActorClan(actorID, func(c *domain.Clan) {
		for id := range c.Members {
			seen[id] = struct{}{}
		}
	})
	if !ok {
		return nil, domain.ErrNotInClan
	}
	for _, id := range s.SpyViewers() {
		seen[id] = struct{}{}
	}

	out := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sortIDs(out)
	return out, nil
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
