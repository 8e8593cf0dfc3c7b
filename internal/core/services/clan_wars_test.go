package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareWarIsSymmetric(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Alpha")
	f.create(t, "Bravo")

	require.NoError(t, f.svc.DeclareWar(a, "bravo"))

	alpha, bravo := f.clan(t, "Alpha"), f.clan(t, "Bravo")
	require.Contains(t, alpha.ActiveWars, "bravo")
	require.Contains(t, bravo.ActiveWars, "alpha")
	assert.Equal(t, "Bravo", alpha.ActiveWars["bravo"].EnemyClanName)
	assert.Equal(t, "Alpha", bravo.ActiveWars["alpha"].EnemyClanName)
	assert.True(t, alpha.ActiveWars["bravo"].Active)
	assert.Equal(t, [][2]string{{"Alpha", "Bravo"}}, f.events.declared)

	assert.ErrorIs(t, f.svc.DeclareWar(a, "Bravo"), domain.ErrAlreadyAtWar)
}

func TestDeclareWarRejections(t *testing.T) {
	f := newFixture(t, withOptions(func(o *ClanOptions) { o.MaxActiveWars = 1 }))
	a := f.create(t, "Alpha")
	member := f.join(t, "Alpha")
	f.create(t, "Bravo")
	c := f.create(t, "Charlie")

	assert.ErrorIs(t, f.svc.DeclareWar(a, "Alpha"), domain.ErrSelfWar)
	assert.ErrorIs(t, f.svc.DeclareWar(a, "Nobody"), domain.ErrClanNotFound)
	assert.ErrorIs(t, f.svc.DeclareWar(member, "Bravo"), domain.ErrNotLeader)
	assert.ErrorIs(t, f.svc.DeclareWar(uuid.New(), "Bravo"), domain.ErrNotInClan)

	require.NoError(t, f.svc.DeclareWar(a, "Bravo"))
	assert.ErrorIs(t, f.svc.DeclareWar(a, "Charlie"), domain.ErrWarLimit)
	// the cap holds for the clan being declared on as well
	assert.ErrorIs(t, f.svc.DeclareWar(c, "Bravo"), domain.ErrWarLimit)
	assert.Empty(t, f.clan(t, "Charlie").ActiveWars)
	assert.Len(t, f.clan(t, "Bravo").ActiveWars, 1)
}

func TestWarKillsAndWinner(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Alpha")
	b := f.create(t, "Bravo")
	require.NoError(t, f.svc.DeclareWar(a, "Bravo"))

	f.svc.RecordKill(a, b)
	f.svc.RecordKill(a, b)
	f.svc.RecordKill(b, a)

	// each kill moves only the killer's own record
	alpha, bravo := f.clan(t, "Alpha"), f.clan(t, "Bravo")
	assert.Equal(t, 2, alpha.ActiveWars["bravo"].KillsSelf)
	assert.Zero(t, alpha.ActiveWars["bravo"].KillsEnemy)
	assert.Equal(t, 1, bravo.ActiveWars["alpha"].KillsSelf)
	assert.Zero(t, bravo.ActiveWars["alpha"].KillsEnemy)
	assert.Equal(t, 2, alpha.Kills[a])
	assert.Equal(t, 2, bravo.Deaths[b])

	require.NoError(t, f.svc.EndWar(a, "Bravo"))

	alpha, bravo = f.clan(t, "Alpha"), f.clan(t, "Bravo")
	assert.Empty(t, alpha.ActiveWars)
	assert.Empty(t, bravo.ActiveWars)
	assert.Equal(t, 1, alpha.Wins)
	assert.Equal(t, 100, alpha.WarPoints)
	assert.Equal(t, 1, bravo.Losses)
	assert.Equal(t, 0, bravo.WarPoints)
	assert.Equal(t, [][3]string{{"Alpha", "Bravo", "Alpha"}}, f.events.ended)

	assert.ErrorIs(t, f.svc.EndWar(a, "Bravo"), domain.ErrNotAtWar)
}

func TestEndWarReadsEndingSide(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Alpha")
	b := f.create(t, "Bravo")
	require.NoError(t, f.svc.DeclareWar(a, "Bravo"))

	f.svc.RecordKill(a, b)
	f.svc.RecordKill(a, b)
	f.svc.RecordKill(b, a)

	// Bravo's record holds its single kill against zero, so Bravo wins
	require.NoError(t, f.svc.EndWar(b, "Alpha"))

	alpha, bravo := f.clan(t, "Alpha"), f.clan(t, "Bravo")
	assert.Equal(t, 1, bravo.Wins)
	assert.Equal(t, 100, bravo.WarPoints)
	assert.Equal(t, 1, alpha.Losses)
	assert.Zero(t, alpha.Wins+alpha.WarPoints)
	assert.Equal(t, [][3]string{{"Bravo", "Alpha", "Bravo"}}, f.events.ended)
}

func TestEndWarTie(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Alpha")
	f.create(t, "Bravo")
	require.NoError(t, f.svc.DeclareWar(a, "Bravo"))

	require.NoError(t, f.svc.EndWar(a, "Bravo"))

	alpha, bravo := f.clan(t, "Alpha"), f.clan(t, "Bravo")
	assert.Zero(t, alpha.Wins+alpha.Losses+alpha.WarPoints)
	assert.Zero(t, bravo.Wins+bravo.Losses+bravo.WarPoints)
	assert.Equal(t, "", f.events.ended[0][2])
}

// oneSidedWars counts war records whose enemy does not hold the mirror record
func oneSidedWars(snap map[string]*domain.Clan) int {
	n := 0
	for key, c := range snap {
		for enemyKey := range c.ActiveWars {
			other, ok := snap[enemyKey]
			if !ok {
				n++
				continue
			}
			if _, mirrored := other.ActiveWars[key]; !mirrored {
				n++
			}
		}
	}
	return n
}

func TestConcurrentWarsStaySymmetric(t *testing.T) {
	f := newFixture(t)
	names := []string{"Alpha", "Bravo", "Charlie"}
	leaders := make([]uuid.UUID, len(names))
	for i, name := range names {
		leaders[i] = f.create(t, name)
	}

	stop := make(chan struct{})
	var torn atomic.Int32
	var snapshots atomic.Int32
	var readers sync.WaitGroup
	for i := 0; i < 2; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				torn.Add(int32(oneSidedWars(f.svc.Snapshot())))
				snapshots.Add(1)
			}
		}()
	}

	var writers sync.WaitGroup
	for i := range leaders {
		writers.Add(1)
		go func(i int) {
			defer writers.Done()
			enemy := (i + 1) % len(names)
			for n := 0; n < 200; n++ {
				_ = f.svc.DeclareWar(leaders[i], names[enemy])
				f.svc.RecordKill(leaders[i], leaders[enemy])
				if n%2 == 0 {
					_ = f.svc.EndWar(leaders[i], names[enemy])
				} else {
					_ = f.svc.MakePeace(leaders[i], names[enemy])
				}
			}
		}(i)
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	assert.Zero(t, torn.Load(), "a reader saw a war on only one side")
	assert.Positive(t, snapshots.Load())
	assert.Zero(t, oneSidedWars(f.svc.Snapshot()))
}

func TestMakePeace(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Alpha")
	b := f.create(t, "Bravo")
	require.NoError(t, f.svc.EnemyAdd(b, "Alpha"))
	require.NoError(t, f.svc.DeclareWar(a, "Bravo"))

	require.NoError(t, f.svc.MakePeace(a, "Bravo"))

	alpha, bravo := f.clan(t, "Alpha"), f.clan(t, "Bravo")
	assert.Empty(t, alpha.ActiveWars)
	assert.Empty(t, bravo.ActiveWars)
	assert.False(t, bravo.Enemies.Has("alpha"))

	assert.ErrorIs(t, f.svc.MakePeace(a, "Bravo"), domain.ErrNotAtWar)
}

func TestRelations(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Alpha")
	member := f.join(t, "Alpha")
	f.create(t, "Bravo")

	assert.ErrorIs(t, f.svc.AllyAdd(a, "Alpha"), domain.ErrSelfRelation)
	assert.ErrorIs(t, f.svc.AllyAdd(a, "Ghost"), domain.ErrClanNotFound)
	assert.ErrorIs(t, f.svc.AllyAdd(member, "Bravo"), domain.ErrNotLeader)

	require.NoError(t, f.svc.AllyAdd(a, "Bravo"))
	assert.True(t, f.clan(t, "Alpha").Allies.Has("bravo"))

	require.NoError(t, f.svc.EnemyAdd(a, "Bravo"))
	alpha := f.clan(t, "Alpha")
	assert.True(t, alpha.Enemies.Has("bravo"))
	assert.False(t, alpha.Allies.Has("bravo"))

	require.NoError(t, f.svc.EnemyRemove(a, "Bravo"))
	assert.False(t, f.clan(t, "Alpha").Enemies.Has("bravo"))

	// removing a mark for a clan that no longer exists is allowed
	require.NoError(t, f.svc.AllyRemove(a, "Ghost"))
}

func TestRecordKillOutsideClans(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Alpha")
	loner := uuid.New()

	f.svc.RecordKill(loner, a)
	assert.Equal(t, 1, f.clan(t, "Alpha").Deaths[a])

	f.svc.RecordKill(a, loner)
	alpha := f.clan(t, "Alpha")
	assert.Equal(t, 1, alpha.Kills[a])
	assert.Equal(t, 1, alpha.DailyKills[a])
	assert.Equal(t, 10.0, alpha.XP)

	f.svc.RecordDeath(a)
	assert.Equal(t, 2, f.clan(t, "Alpha").Deaths[a])
}

func TestRecordKillRollsDailyWindow(t *testing.T) {
	f := newFixture(t)
	clock := fixedNow
	f.svc.now = func() time.Time { return clock }
	a := f.create(t, "Alpha")

	f.svc.RecordKill(a, uuid.New())
	f.svc.RecordKill(a, uuid.New())
	assert.Equal(t, 2, f.clan(t, "Alpha").DailyKills[a])

	clock = fixedNow.Add(25 * time.Hour)
	f.svc.RecordKill(a, uuid.New())
	alpha := f.clan(t, "Alpha")
	assert.Equal(t, 1, alpha.DailyKills[a])
	assert.Equal(t, 3, alpha.Kills[a])
}

func TestResetDailyKills(t *testing.T) {
	f := newFixture(t)
	clock := fixedNow
	f.svc.now = func() time.Time { return clock }
	a := f.create(t, "Alpha")
	f.create(t, "Bravo")
	f.svc.RecordKill(a, uuid.New())

	assert.Equal(t, 0, f.svc.ResetDailyKills())

	clock = fixedNow.Add(48 * time.Hour)
	assert.Equal(t, 2, f.svc.ResetDailyKills())
	assert.Empty(t, f.clan(t, "Alpha").DailyKills)
	assert.Equal(t, 0, f.svc.ResetDailyKills())
}
