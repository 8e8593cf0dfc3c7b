package config

import (
	"log"

	"github.com/4rubka/ClanMaster/internal/adapters/persistence/models"
	"github.com/4rubka/ClanMaster/internal/adapters/persistence/repositories"
	"github.com/4rubka/ClanMaster/internal/adapters/persistence/snapshot"

	"gorm.io/gorm"
)

// OpenStorage builds the clan storage backend. db is nil for the snapshot backend.
func OpenStorage(cfg *Config) (repositories.ClanStorage, *gorm.DB, error) {
	if cfg.Storage.Type == StorageJSON {
		log.Printf("✅ Snapshot storage at %s (compress=%t)", cfg.Storage.SnapshotPath, cfg.Storage.SnapshotCompress)
		return snapshot.NewStore(cfg.Storage.SnapshotPath, cfg.Storage.SnapshotCompress), nil, nil
	}

	db, err := ConnectDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, nil, err
	}
	log.Println("✅ Database migration completed")

	return repositories.NewClanRepository(db), db, nil
}
