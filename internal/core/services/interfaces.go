package services

import (
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

// FundsProvider is the external currency account of an actor.
// A nil provider disables every funds check.
type FundsProvider interface {
	Has(actorID uuid.UUID, amount float64) bool
	Withdraw(actorID uuid.UUID, amount float64) error
	Deposit(actorID uuid.UUID, amount float64) error
}

// Broadcaster receives clan events once the registry lock is released
type Broadcaster interface {
	LevelUp(clanName string, level int, bonus domain.Bonus)
	WarDeclared(clanName, enemyName string)
	WarEnded(clanName, enemyName, winner string)
	ClanDisbanded(clanName string)
}

// ClanOptions holds gameplay limits and the xp curve
type ClanOptions struct {
	MaxMembers    int
	MaxActiveWars int
	XPPerLevel    float64
	XPPerKill     float64
	WarWinPoints  int
	CreateCost    float64
}

// DefaultClanOptions mirrors the configuration defaults
func DefaultClanOptions() ClanOptions {
	return ClanOptions{
		MaxMembers:    20,
		MaxActiveWars: 3,
		XPPerLevel:    1000,
		XPPerKill:     10,
		WarWinPoints:  100,
	}
}
