package services

import (
	"fmt"
	"log"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

// levelEvent is announced after the registry lock is released
type levelEvent struct {
	clan  string
	level int
	bonus domain.Bonus
}

// addXPLocked adds amount and advances at most one level. The caller owns c.
func (s *ClanService) addXPLocked(c *domain.Clan, amount float64) *levelEvent {
	c.XP += amount
	if c.XP < s.XPForLevel(c.Level) {
		return nil
	}

	c.Level++
	c.XP = 0
	bonus, ok := s.bonuses.For(c.Level)
	if !ok {
		bonus = domain.Bonus{Level: c.Level}
	}
	c.Coins += bonus.Coins
	return &levelEvent{clan: c.Name, level: c.Level, bonus: bonus}
}

func (s *ClanService) announce(ev *levelEvent) {
	if ev == nil {
		return
	}
	s.broadcaster.LevelUp(ev.clan, ev.level, ev.bonus)
}

// AddXp grants xp to the named clan and reports whether it levelled up
func (s *ClanService) AddXp(name string, amount float64) (bool, error) {
	if amount <= 0 {
		return false, domain.ErrInvalidAmount
	}
	var ev *levelEvent
	err := s.mutateClan(name, func(c *domain.Clan) error {
		ev = s.addXPLocked(c, amount)
		return nil
	})
	if err != nil {
		return false, err
	}
	s.announce(ev)
	return ev != nil, nil
}

// XPForLevel is the xp needed to leave level
func (s *ClanService) XPForLevel(level int) float64 {
	return s.opts.XPPerLevel * float64(level)
}

// XPToNext returns the xp the named clan still needs for its next level
func (s *ClanService) XPToNext(name string) (float64, error) {
	var remaining float64
	ok := s.viewClan(name, func(c *domain.Clan) {
		remaining = s.XPForLevel(c.Level) - c.XP
	})
	if !ok {
		return 0, domain.ErrClanNotFound
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ============================================================
// Points
// ============================================================

// PointsDeposit moves amount from the actor's funds into the clan bank
func (s *ClanService) PointsDeposit(actorID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if _, ok := s.ClanName(actorID); !ok {
		return domain.ErrNotInClan
	}

	if s.funds != nil {
		if !s.funds.Has(actorID, amount) {
			return domain.ErrInsufficientFunds
		}
		if err := s.funds.Withdraw(actorID, amount); err != nil {
			return domain.ErrInsufficientFunds
		}
	}

	err := s.mutateActorClan(actorID, func(c *domain.Clan, _ *domain.Member) error {
		c.Points += amount
		c.PlayerPoints[actorID] += amount
		c.LastActivity = s.now()
		return nil
	})
	if err != nil && s.funds != nil {
		if rerr := s.funds.Deposit(actorID, amount); rerr != nil {
			log.Printf("❌ Failed to refund %.2f to %s: %v", amount, actorID, rerr)
		}
	}
	return err
}

// PointsWithdraw takes amount from the clan bank and pays it to the actor
func (s *ClanService) PointsWithdraw(actorID uuid.UUID, amount float64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	var clanKey string
	err := s.mutateActorClan(actorID, func(c *domain.Clan, _ *domain.Member) error {
		if c.Points < amount {
			return domain.ErrInsufficientPoints
		}
		c.Points -= amount
		clanKey = c.Key()
		return nil
	})
	if err != nil {
		return err
	}
	if s.funds == nil {
		return nil
	}

	if derr := s.funds.Deposit(actorID, amount); derr != nil {
		rerr := s.mutateClan(clanKey, func(c *domain.Clan) error {
			c.Points += amount
			return nil
		})
		if rerr != nil {
			log.Printf("❌ Lost %.2f points of clan %s: %v", amount, clanKey, rerr)
		}
		return fmt.Errorf("deposit to funds provider: %w", derr)
	}
	return nil
}

// ============================================================
// Admin
// ============================================================

// SetLevel overrides the clan level and clears its xp
func (s *ClanService) SetLevel(name string, level int) error {
	if level < 1 {
		return domain.ErrInvalidAmount
	}
	return s.mutateClan(name, func(c *domain.Clan) error {
		c.Level = level
		c.XP = 0
		return nil
	})
}

// SetWarPoints overrides the clan war points
func (s *ClanService) SetWarPoints(name string, points int) error {
	if points < 0 {
		return domain.ErrInvalidAmount
	}
	return s.mutateClan(name, func(c *domain.Clan) error {
		c.WarPoints = points
		return nil
	})
}

// SetCreateCost changes the price of creating a clan
func (s *ClanService) SetCreateCost(cost float64) error {
	if cost < 0 {
		return domain.ErrInvalidAmount
	}
	s.mu.Lock()
	s.opts.CreateCost = cost
	s.mu.Unlock()
	log.Printf("✅ Clan creation cost set to %.2f", cost)
	return nil
}

// CreateCost returns the current price of creating a clan
func (s *ClanService) CreateCost() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.CreateCost
}
