package repositories

import (
	"context"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

// ClanStorage is the persistence port for the clan registry.
// Both the snapshot file backend and the gorm backend implement it.
type ClanStorage interface {
	// LoadAll reads every clan keyed by normalized name. A missing store yields an empty map.
	LoadAll(ctx context.Context) (map[string]*domain.Clan, error)
	// SaveAll replaces the durable state with clans as one unit.
	SaveAll(ctx context.Context, clans map[string]*domain.Clan) error
	// SaveClan upserts a single clan. No-op for whole-snapshot backends.
	SaveClan(ctx context.Context, clan *domain.Clan) error
	// DeleteClan removes a clan by normalized name. No-op for whole-snapshot backends.
	DeleteClan(ctx context.Context, name string) error
	// FindByActor resolves the clan containing actorID inside clans.
	FindByActor(actorID uuid.UUID, clans map[string]*domain.Clan) *domain.Clan
	// Incremental reports whether SaveClan/DeleteClan persist anything.
	Incremental() bool
	Close() error
}

// FindByActor scans clans for the one holding actorID
func FindByActor(actorID uuid.UUID, clans map[string]*domain.Clan) *domain.Clan {
	for _, clan := range clans {
		if _, ok := clan.Members[actorID]; ok {
			return clan
		}
	}
	return nil
}
