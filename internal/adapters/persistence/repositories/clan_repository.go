package repositories

import (
	"context"
	"fmt"
	"log"

	"github.com/4rubka/ClanMaster/internal/adapters/persistence/models"
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 200

// clanRepository implements ClanStorage on top of gorm (MySQL or SQLite)
type clanRepository struct {
	db *gorm.DB
}

// NewClanRepository creates a relational clan storage. Tables must already exist.
func NewClanRepository(db *gorm.DB) ClanStorage {
	return &clanRepository{db: db}
}

// LoadAll rebuilds clans from the clan table, then attaches members and wars.
// Rows pointing at unknown clans are skipped.
func (r *clanRepository) LoadAll(ctx context.Context) (map[string]*domain.Clan, error) {
	var rows []models.Clan
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load clans: %w", err)
	}

	clans := make(map[string]*domain.Clan, len(rows))
	for i := range rows {
		clans[domain.NormalizeName(rows[i].Name)] = rows[i].ToDomain()
	}

	var members []models.ClanMember
	if err := r.db.WithContext(ctx).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load clan members: %w", err)
	}
	for i := range members {
		clan, ok := clans[members[i].ClanName]
		if !ok {
			log.Printf("⚠️ Skipping orphan member %s of unknown clan %s", members[i].ActorID, members[i].ClanName)
			continue
		}
		if err := members[i].Attach(clan); err != nil {
			log.Printf("⚠️ Skipping malformed member row %s/%s: %v", members[i].ClanName, members[i].ActorID, err)
		}
	}

	var wars []models.ClanWar
	if err := r.db.WithContext(ctx).Find(&wars).Error; err != nil {
		return nil, fmt.Errorf("load clan wars: %w", err)
	}
	for i := range wars {
		clan, ok := clans[wars[i].ClanName]
		if !ok {
			log.Printf("⚠️ Skipping orphan war row %s -> %s", wars[i].ClanName, wars[i].EnemyName)
			continue
		}
		wars[i].Attach(clan)
	}

	return clans, nil
}

// SaveAll replaces every row inside one transaction
func (r *clanRepository) SaveAll(ctx context.Context, clans map[string]*domain.Clan) error {
	var (
		clanRows   = make([]models.Clan, 0, len(clans))
		memberRows []models.ClanMember
		warRows    []models.ClanWar
	)
	for _, c := range clans {
		row, members, wars := models.FromDomain(c)
		clanRows = append(clanRows, row)
		memberRows = append(memberRows, members...)
		warRows = append(warRows, wars...)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.ClanWar{}).Error; err != nil {
			return fmt.Errorf("clear clan wars: %w", err)
		}
		if err := all.Delete(&models.ClanMember{}).Error; err != nil {
			return fmt.Errorf("clear clan members: %w", err)
		}
		if err := all.Delete(&models.Clan{}).Error; err != nil {
			return fmt.Errorf("clear clans: %w", err)
		}
		if len(clanRows) > 0 {
			if err := tx.CreateInBatches(&clanRows, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert clans: %w", err)
			}
		}
		if len(memberRows) > 0 {
			if err := tx.CreateInBatches(&memberRows, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert clan members: %w", err)
			}
		}
		if len(warRows) > 0 {
			if err := tx.CreateInBatches(&warRows, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert clan wars: %w", err)
			}
		}
		return nil
	})
}

// SaveClan upserts one clan and replaces its member and war rows
func (r *clanRepository) SaveClan(ctx context.Context, clan *domain.Clan) error {
	row, members, wars := models.FromDomain(clan)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert clan %s: %w", row.Name, err)
		}
		if err := tx.Where("clan_name = ?", row.Name).Delete(&models.ClanMember{}).Error; err != nil {
			return fmt.Errorf("clear members of %s: %w", row.Name, err)
		}
		if err := tx.Where("clan_name = ?", row.Name).Delete(&models.ClanWar{}).Error; err != nil {
			return fmt.Errorf("clear wars of %s: %w", row.Name, err)
		}
		if len(members) > 0 {
			if err := tx.Create(&members).Error; err != nil {
				return fmt.Errorf("insert members of %s: %w", row.Name, err)
			}
		}
		if len(wars) > 0 {
			if err := tx.Create(&wars).Error; err != nil {
				return fmt.Errorf("insert wars of %s: %w", row.Name, err)
			}
		}
		return nil
	})
}

// DeleteClan removes the clan and its dependent rows
func (r *clanRepository) DeleteClan(ctx context.Context, name string) error {
	key := domain.NormalizeName(name)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("clan_name = ?", key).Delete(&models.ClanWar{}).Error; err != nil {
			return err
		}
		if err := tx.Where("clan_name = ?", key).Delete(&models.ClanMember{}).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", key).Delete(&models.Clan{}).Error
	})
}

func (r *clanRepository) FindByActor(actorID uuid.UUID, clans map[string]*domain.Clan) *domain.Clan {
	return FindByActor(actorID, clans)
}

func (r *clanRepository) Incremental() bool { return true }

// Close releases the underlying connection pool
func (r *clanRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
