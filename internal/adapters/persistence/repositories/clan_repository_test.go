package repositories_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/4rubka/ClanMaster/internal/adapters/persistence/models"
	"github.com/4rubka/ClanMaster/internal/adapters/persistence/repositories"
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "clans.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newClan(name string, members ...uuid.UUID) *domain.Clan {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := domain.NewClan(name, now)
	for i, id := range members {
		rank := domain.RankMember
		if i == 0 {
			rank = domain.RankLeader
		}
		c.Members[id] = &domain.Member{ActorID: id, Rank: rank, JoinedAt: now}
	}
	return c
}

func TestSaveAllAndLoadAll(t *testing.T) {
	repo := repositories.NewClanRepository(openTestDB(t))
	ctx := context.Background()
	leader, member := uuid.New(), uuid.New()

	alpha := newClan("Alpha", leader, member)
	alpha.Kills[leader] = 3
	alpha.PlayerPoints[member] = 12.5
	alpha.Enemies.Add("bravo")
	alpha.Achievements.Add("first blood")
	alpha.ActiveWars["bravo"] = domain.NewWar("Bravo", alpha.LastActivity)
	bravo := newClan("Bravo", uuid.New())
	bravo.ActiveWars["alpha"] = domain.NewWar("Alpha", bravo.LastActivity)

	require.NoError(t, repo.SaveAll(ctx, map[string]*domain.Clan{"alpha": alpha, "bravo": bravo}))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	got := loaded["alpha"]
	require.NotNil(t, got)
	assert.Equal(t, "Alpha", got.Name)
	assert.Len(t, got.Members, 2)
	assert.Equal(t, domain.RankLeader, got.Members[leader].Rank)
	assert.Equal(t, 3, got.Kills[leader])
	assert.Equal(t, 12.5, got.PlayerPoints[member])
	assert.True(t, got.Enemies.Has("bravo"))
	assert.True(t, got.Achievements.Has("first blood"))
	require.Contains(t, got.ActiveWars, "bravo")
	assert.Equal(t, "Bravo", got.ActiveWars["bravo"].EnemyClanName)
	assert.True(t, got.ActiveWars["bravo"].Active)
	assert.Same(t, got, repo.FindByActor(member, loaded))

	// a second SaveAll replaces everything
	require.NoError(t, repo.SaveAll(ctx, map[string]*domain.Clan{"bravo": bravo}))
	loaded, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Contains(t, loaded, "bravo")
}

func TestSaveClanAndDeleteClan(t *testing.T) {
	repo := repositories.NewClanRepository(openTestDB(t))
	ctx := context.Background()
	leader, member := uuid.New(), uuid.New()

	alpha := newClan("Alpha", leader, member)
	require.NoError(t, repo.SaveClan(ctx, alpha))

	delete(alpha.Members, member)
	alpha.Level = 4
	require.NoError(t, repo.SaveClan(ctx, alpha))
	require.NoError(t, repo.SaveClan(ctx, newClan("Bravo", uuid.New())))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 4, loaded["alpha"].Level)
	assert.Len(t, loaded["alpha"].Members, 1)

	require.NoError(t, repo.DeleteClan(ctx, "ALPHA"))
	loaded, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotContains(t, loaded, "alpha")
	assert.True(t, repo.Incremental())
}

func TestLoadAllSkipsOrphanRows(t *testing.T) {
	db := openTestDB(t)
	repo := repositories.NewClanRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.SaveClan(ctx, newClan("Alpha", uuid.New())))

	require.NoError(t, db.Create(&models.ClanMember{ClanName: "ghost", ActorID: uuid.NewString(), Rank: "MEMBER"}).Error)
	require.NoError(t, db.Create(&models.ClanMember{ClanName: "alpha", ActorID: "not-a-uuid", Rank: "MEMBER"}).Error)
	require.NoError(t, db.Create(&models.ClanWar{ClanName: "ghost", EnemyName: "alpha"}).Error)

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Len(t, loaded["alpha"].Members, 1)
	assert.Empty(t, loaded["alpha"].ActiveWars)
}
