package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// assertOneLeader checks every clan has exactly one LEADER and every member
// is indexed to its clan
func assertOneLeader(t *testing.T, svc *ClanService) {
	t.Helper()
	for key, c := range svc.Snapshot() {
		assert.Equal(t, 1, c.CountRank(domain.RankLeader), "clan %s", key)
		assert.NotEmpty(t, c.Members, "clan %s has no members", key)
		for id := range c.Members {
			name, ok := svc.ClanName(id)
			assert.True(t, ok)
			assert.Equal(t, key, domain.NormalizeName(name))
		}
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Foo"))
	assert.NoError(t, ValidateName("clan_123"))
	assert.ErrorIs(t, ValidateName("ab"), domain.ErrInvalidName)
	assert.ErrorIs(t, ValidateName("has space"), domain.ErrInvalidName)
	assert.ErrorIs(t, ValidateName("abcdefghijklmnopq"), domain.ErrInvalidName)
}

func TestCreateClan(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")

	c := f.clan(t, "foo")
	assert.Equal(t, "Foo", c.Name)
	assert.Equal(t, 1, c.Level)
	assert.Equal(t, leader, c.Leader())

	t.Run("name taken case-insensitively", func(t *testing.T) {
		_, err := f.svc.CreateClan("FOO", uuid.New())
		assert.ErrorIs(t, err, domain.ErrClanExists)
	})

	t.Run("leader already in a clan", func(t *testing.T) {
		_, err := f.svc.CreateClan("Bar", leader)
		assert.ErrorIs(t, err, domain.ErrAlreadyInClan)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := f.svc.CreateClan("x!", uuid.New())
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	})

	assert.Equal(t, 1, f.svc.Count())
}

func TestCreateClanCharges(t *testing.T) {
	funds := &MockFunds{}
	f := newFixture(t, withFunds(funds), withOptions(func(o *ClanOptions) { o.CreateCost = 250 }))

	rich, poor := uuid.New(), uuid.New()
	funds.On("Has", rich, 250.0).Return(true)
	funds.On("Withdraw", rich, 250.0).Return(nil)
	funds.On("Has", poor, 250.0).Return(false)

	_, err := f.svc.CreateClan("Rich", rich)
	require.NoError(t, err)

	_, err = f.svc.CreateClan("Poor", poor)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	_, exists := f.svc.GetClanByName("Poor")
	assert.False(t, exists)

	funds.AssertExpectations(t)
	funds.AssertNotCalled(t, "Withdraw", poor, mock.Anything)
}

func TestCreateClanRefundsOnFailure(t *testing.T) {
	funds := &MockFunds{}
	f := newFixture(t, withFunds(funds), withOptions(func(o *ClanOptions) { o.CreateCost = 100 }))
	f.svc.funds = nil
	f.create(t, "Foo")
	f.svc.funds = funds

	actor := uuid.New()
	funds.On("Has", actor, 100.0).Return(true)
	funds.On("Withdraw", actor, 100.0).Return(nil)
	funds.On("Deposit", actor, 100.0).Return(nil)

	_, err := f.svc.CreateClan("foo", actor)
	assert.ErrorIs(t, err, domain.ErrClanExists)
	funds.AssertExpectations(t)
}

func TestSetCreateCost(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.SetCreateCost(-1), domain.ErrInvalidAmount)
	require.NoError(t, f.svc.SetCreateCost(75))
	assert.Equal(t, 75.0, f.svc.CreateCost())
}

func TestMembershipScenario(t *testing.T) {
	f := newFixture(t)
	u1, u2 := uuid.New(), uuid.New()

	_, err := f.svc.CreateClan("Foo", u1)
	require.NoError(t, err)
	require.NoError(t, f.svc.AddMember("Foo", u2))
	assert.Len(t, f.clan(t, "Foo").Members, 2)

	require.NoError(t, f.svc.Promote(u1, u2))
	rank, _ := f.svc.RankOf(u2)
	assert.Equal(t, domain.RankOfficer, rank)

	assert.Error(t, f.svc.Demote(u2, u2))
	assert.ErrorIs(t, f.svc.LeaveClan(u1), domain.ErrLeaderMustTransfer)

	require.NoError(t, f.svc.Transfer(u1, u2))
	rank, _ = f.svc.RankOf(u2)
	assert.Equal(t, domain.RankLeader, rank)
	rank, _ = f.svc.RankOf(u1)
	assert.Equal(t, domain.RankOfficer, rank)

	require.NoError(t, f.svc.LeaveClan(u1))
	_, in := f.svc.ClanName(u1)
	assert.False(t, in)
	assertOneLeader(t, f.svc)
}

func TestAddMemberLimits(t *testing.T) {
	f := newFixture(t, withOptions(func(o *ClanOptions) { o.MaxMembers = 2 }))
	f.create(t, "Foo")
	member := f.join(t, "Foo")

	assert.ErrorIs(t, f.svc.AddMember("Foo", uuid.New()), domain.ErrClanFull)
	assert.ErrorIs(t, f.svc.AddMember("Missing", uuid.New()), domain.ErrClanNotFound)

	f.create(t, "Bar")
	assert.ErrorIs(t, f.svc.AddMember("Bar", member), domain.ErrAlreadyInClan)
}

func TestLastMemberLeavingDeletesClan(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")

	require.NoError(t, f.svc.LeaveClan(leader))
	_, exists := f.svc.GetClanByName("Foo")
	assert.False(t, exists)
	assert.Equal(t, []string{"Foo"}, f.events.disbanded)
	assert.ErrorIs(t, f.svc.LeaveClan(leader), domain.ErrNotInClan)
}

func TestKick(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")
	officer := f.join(t, "Foo")
	member := f.join(t, "Foo")
	other := f.join(t, "Foo")
	require.NoError(t, f.svc.Promote(leader, officer))

	assert.ErrorIs(t, f.svc.Kick(member, other), domain.ErrNoPermission)
	assert.ErrorIs(t, f.svc.Kick(officer, leader), domain.ErrNoPermission)
	assert.ErrorIs(t, f.svc.Kick(leader, leader), domain.ErrSelfAction)
	assert.ErrorIs(t, f.svc.Kick(leader, uuid.New()), domain.ErrNotMember)

	require.NoError(t, f.svc.Kick(officer, member))
	require.NoError(t, f.svc.KickMember("foo", other))
	assert.ErrorIs(t, f.svc.KickMember("foo", leader), domain.ErrLeaderMustTransfer)

	c := f.clan(t, "Foo")
	assert.Len(t, c.Members, 2)
	_, in := f.svc.ClanName(member)
	assert.False(t, in)
}

func TestRemovedMemberLosesCounters(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")
	member := f.join(t, "Foo")
	f.create(t, "Bar")

	f.svc.RecordKill(member, uuid.New())
	require.NoError(t, f.svc.Kick(leader, member))

	c := f.clan(t, "Foo")
	assert.NotContains(t, c.Kills, member)
	assert.NotContains(t, c.DailyKills, member)
}

func TestPromoteDemote(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")
	a := f.join(t, "Foo")
	b := f.join(t, "Foo")

	require.NoError(t, f.svc.Promote(leader, a))
	assert.ErrorIs(t, f.svc.Promote(b, a), domain.ErrNoPermission)
	assert.ErrorIs(t, f.svc.Demote(a, leader), domain.ErrCannotDemoteLeader)
	assert.ErrorIs(t, f.svc.Demote(leader, b), domain.ErrRankLimit)
	assert.ErrorIs(t, f.svc.Promote(a, leader), domain.ErrRankLimit)

	require.NoError(t, f.svc.Demote(leader, a))
	rank, _ := f.svc.RankOf(a)
	assert.Equal(t, domain.RankMember, rank)

	// promoting an officer hands over leadership
	require.NoError(t, f.svc.Promote(leader, a))
	require.NoError(t, f.svc.Promote(leader, a))
	rank, _ = f.svc.RankOf(a)
	assert.Equal(t, domain.RankLeader, rank)
	rank, _ = f.svc.RankOf(leader)
	assert.Equal(t, domain.RankOfficer, rank)
	assertOneLeader(t, f.svc)
}

func TestConcurrentRankChangesKeepOneLeader(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")
	officers := make([]uuid.UUID, 8)
	for i := range officers {
		officers[i] = f.join(t, "Foo")
		require.NoError(t, f.svc.Promote(leader, officers[i]))
	}

	var wg sync.WaitGroup
	for _, id := range officers {
		wg.Add(1)
		go func(target uuid.UUID) {
			defer wg.Done()
			_ = f.svc.Promote(leader, target)
		}(id)
		wg.Add(1)
		go func(target uuid.UUID) {
			defer wg.Done()
			_ = f.svc.Transfer(leader, target)
		}(id)
	}
	wg.Wait()

	assertOneLeader(t, f.svc)
}

func TestConcurrentRenameIsIndivisible(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Alpha")
	member := f.join(t, "Alpha")
	rival := f.create(t, "Bravo")
	require.NoError(t, f.svc.DeclareWar(rival, "Alpha"))

	stop := make(chan struct{})
	var torn atomic.Int32
	var readers sync.WaitGroup
	check := func(fn func() bool) {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if !fn() {
					torn.Add(1)
				}
			}
		}()
	}

	// exactly one of the two names is registered at any time
	check(func() bool {
		names := f.svc.ListClans()
		seen := 0
		for _, name := range names {
			if name == "Alpha" || name == "Omega" {
				seen++
			}
		}
		return len(names) == 2 && seen == 1
	})
	// the war held by the other clan always points at the current key
	check(func() bool {
		snap := f.svc.Snapshot()
		_, alpha := snap["alpha"]
		_, omega := snap["omega"]
		if alpha == omega {
			return false
		}
		current := "alpha"
		if omega {
			current = "omega"
		}
		_, atWar := snap["bravo"].ActiveWars[current]
		return atWar && len(snap["bravo"].ActiveWars) == 1
	})
	// members always resolve to a clan registered under the returned name
	check(func() bool {
		name, ok := f.svc.ClanName(member)
		return ok && (name == "Alpha" || name == "Omega")
	})
	check(func() bool {
		for _, name := range []string{"Alpha", "Omega"} {
			if c, ok := f.svc.GetClanByName(name); ok && c.Name != name {
				return false
			}
		}
		return true
	})

	for n := 0; n < 200; n++ {
		next := "Omega"
		if n%2 == 1 {
			next = "Alpha"
		}
		require.NoError(t, f.svc.Rename(leader, next))
	}
	close(stop)
	readers.Wait()

	assert.Zero(t, torn.Load(), "a reader saw a half-applied rename")
	assert.Equal(t, []string{"Alpha", "Bravo"}, f.svc.ListClans())
}

func TestInvites(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")
	member := f.join(t, "Foo")
	guest := uuid.New()

	assert.ErrorIs(t, f.svc.Invite(member, guest), domain.ErrNoPermission)
	assert.ErrorIs(t, f.svc.Invite(leader, member), domain.ErrAlreadyInClan)
	assert.ErrorIs(t, f.svc.Invite(uuid.New(), guest), domain.ErrNotInClan)
	assert.ErrorIs(t, f.svc.AcceptInvite(guest), domain.ErrNoInvite)

	require.NoError(t, f.svc.Invite(leader, guest))
	name, ok := f.svc.PendingInvite(guest)
	require.True(t, ok)
	assert.Equal(t, "Foo", name)

	require.NoError(t, f.svc.AcceptInvite(guest))
	rank, _ := f.svc.RankOf(guest)
	assert.Equal(t, domain.RankMember, rank)
	_, ok = f.svc.PendingInvite(guest)
	assert.False(t, ok)

	declined := uuid.New()
	require.NoError(t, f.svc.Invite(leader, declined))
	require.NoError(t, f.svc.DeclineInvite(declined))
	assert.ErrorIs(t, f.svc.DeclineInvite(declined), domain.ErrNoInvite)
}

func TestInviteToDeletedClan(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")
	guest := uuid.New()
	require.NoError(t, f.svc.Invite(leader, guest))

	require.NoError(t, f.svc.Disband(leader))
	assert.ErrorIs(t, f.svc.AcceptInvite(guest), domain.ErrNoInvite)
}

func TestDeleteClan(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")
	f.join(t, "Foo")

	require.NoError(t, f.svc.DeleteClan("foo"))
	assert.ErrorIs(t, f.svc.DeleteClan("foo"), domain.ErrClanNotFound)
	assert.Equal(t, 0, f.svc.Count())

	_, in := f.svc.ClanName(leader)
	assert.False(t, in)
	_, err := f.svc.CreateClan("Bar", leader)
	assert.NoError(t, err)
}

func TestDeleteCascadesReferences(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "Alpha")
	b := f.create(t, "Bravo")
	require.NoError(t, f.svc.AllyAdd(b, "Alpha"))
	require.NoError(t, f.svc.DeclareWar(b, "Alpha"))

	require.NoError(t, f.svc.Disband(a))

	bravo := f.clan(t, "Bravo")
	assert.Empty(t, bravo.ActiveWars)
	assert.False(t, bravo.Allies.Has("alpha"))
}

func TestDisbandRequiresLeader(t *testing.T) {
	f := newFixture(t)
	f.create(t, "Foo")
	member := f.join(t, "Foo")

	assert.ErrorIs(t, f.svc.Disband(member), domain.ErrNotLeader)
	assert.ErrorIs(t, f.svc.Disband(uuid.New()), domain.ErrNotInClan)
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	leader := f.create(t, "Foo")
	other := f.create(t, "Bar")
	member := f.join(t, "Foo")
	require.NoError(t, f.svc.SetPrefix(leader, "Foo"))
	require.NoError(t, f.svc.EnemyAdd(other, "Foo"))
	require.NoError(t, f.svc.DeclareWar(other, "Foo"))

	assert.ErrorIs(t, f.svc.Rename(leader, "bar"), domain.ErrClanExists)
	assert.ErrorIs(t, f.svc.Rename(member, "Baz"), domain.ErrNotLeader)

	require.NoError(t, f.svc.Rename(leader, "Baz"))
	_, old := f.svc.GetClanByName("Foo")
	assert.False(t, old)

	c := f.clan(t, "baz")
	assert.Equal(t, "Baz", c.Name)
	assert.Equal(t, "Baz", c.Prefix)
	name, _ := f.svc.ClanName(member)
	assert.Equal(t, "Baz", name)

	bar := f.clan(t, "Bar")
	assert.True(t, bar.Enemies.Has("baz"))
	assert.False(t, bar.Enemies.Has("foo"))
	require.Contains(t, bar.ActiveWars, "baz")
	assert.Equal(t, "Baz", bar.ActiveWars["baz"].EnemyClanName)

	// case-only rename keeps the key
	require.NoError(t, f.svc.Rename(leader, "BAZ"))
	assert.Equal(t, "BAZ", f.clan(t, "baz").Name)
}

func TestLoadSeedsRegistry(t *testing.T) {
	storage := newMemStorage(true)
	leader := uuid.New()
	seed := domain.NewClan("Foo", fixedNow)
	seed.Members[leader] = &domain.Member{ActorID: leader, Rank: domain.RankLeader}
	storage.clans["foo"] = seed

	f := newFixture(t, withStorage(storage))
	name, ok := f.svc.ClanName(leader)
	require.True(t, ok)
	assert.Equal(t, "Foo", name)
}

func TestLoadFailureKeepsStorage(t *testing.T) {
	durable := func(storage *memStorage) {
		leader := uuid.New()
		old := domain.NewClan("Old", fixedNow)
		old.Members[leader] = &domain.Member{ActorID: leader, Rank: domain.RankLeader, JoinedAt: fixedNow}
		storage.clans["old"] = old
		storage.loadErr = errBackend
	}

	t.Run("empty registry", func(t *testing.T) {
		storage := newMemStorage(false)
		storage.loadErr = errBackend

		f := newFixture(t, withStorage(storage))
		assert.Equal(t, 0, f.svc.Count())

		require.NoError(t, f.svc.Save(context.Background()))
		assert.Equal(t, 0, storage.saveAlls)
	})

	t.Run("incremental backend writes clan by clan", func(t *testing.T) {
		storage := newMemStorage(true)
		durable(storage)

		f := newFixture(t, withStorage(storage))
		f.create(t, "Alpha")

		require.NoError(t, f.svc.Save(context.Background()))
		assert.Equal(t, 0, storage.saveAlls)
		assert.Equal(t, []string{"alpha"}, storage.saved)
		_, ok := storage.stored("alpha")
		assert.True(t, ok)
		_, ok = storage.stored("old")
		assert.True(t, ok, "rows the registry never loaded must survive")
		assert.Equal(t, 0, f.svc.Persister().Pending())
	})

	t.Run("snapshot backend is not replaced", func(t *testing.T) {
		storage := newMemStorage(false)
		durable(storage)

		f := newFixture(t, withStorage(storage))
		f.create(t, "Alpha")

		assert.ErrorIs(t, f.svc.Save(context.Background()), ErrStorageNotLoaded)
		assert.ErrorIs(t, f.svc.Flush(context.Background()), ErrStorageNotLoaded)
		assert.Equal(t, 0, storage.saveAlls)
		_, ok := storage.stored("old")
		assert.True(t, ok)
		assert.Equal(t, 1, f.svc.Persister().Pending())
	})
}

func TestLoadRepairsClans(t *testing.T) {
	storage := newMemStorage(true)
	add := func(c *domain.Clan, rank domain.Rank, joined time.Time) uuid.UUID {
		id := uuid.New()
		c.Members[id] = &domain.Member{ActorID: id, Rank: rank, JoinedAt: joined}
		return id
	}

	storage.clans["empty"] = domain.NewClan("Empty", fixedNow)

	headless := domain.NewClan("Headless", fixedNow)
	veteran := add(headless, domain.RankMember, fixedNow.Add(-48*time.Hour))
	rookie := add(headless, domain.RankOfficer, fixedNow)
	storage.clans["headless"] = headless

	crowded := domain.NewClan("Crowded", fixedNow)
	founder := add(crowded, domain.RankLeader, fixedNow.Add(-time.Hour))
	usurper := add(crowded, domain.RankLeader, fixedNow)
	crowded.ActiveWars["headless"] = domain.NewWar("Headless", fixedNow)
	storage.clans["crowded"] = crowded

	f := newFixture(t, withStorage(storage))

	_, ok := f.svc.GetClanByName("Empty")
	assert.False(t, ok)
	assert.Equal(t, 2, f.svc.Count())

	h := f.clan(t, "Headless")
	assert.Equal(t, domain.RankLeader, h.Members[veteran].Rank)
	assert.Equal(t, domain.RankOfficer, h.Members[rookie].Rank)

	c := f.clan(t, "Crowded")
	assert.Equal(t, domain.RankLeader, c.Members[founder].Rank)
	assert.Equal(t, domain.RankOfficer, c.Members[usurper].Rank)
	assert.Empty(t, c.ActiveWars)
	assertOneLeader(t, f.svc)

	// the repaired leader can run leader-only operations again
	require.NoError(t, f.svc.AllyAdd(veteran, "Crowded"))

	require.NoError(t, f.svc.Flush(context.Background()))
	assert.ElementsMatch(t, []string{"crowded", "headless"}, storage.saved)
	assert.Equal(t, []string{"empty"}, storage.deleted)
	stored, ok := storage.stored("headless")
	require.True(t, ok)
	assert.Equal(t, domain.RankLeader, stored.Members[veteran].Rank)
}
