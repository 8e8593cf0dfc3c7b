package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRank(t *testing.T) {
	r, err := ParseRank(" officer ")
	require.NoError(t, err)
	assert.Equal(t, RankOfficer, r)

	_, err = ParseRank("captain")
	assert.True(t, errors.Is(err, ErrInvalidRank))
}

func TestRankCanManage(t *testing.T) {
	assert.True(t, RankLeader.CanManage(RankOfficer))
	assert.True(t, RankLeader.CanManage(RankMember))
	assert.True(t, RankOfficer.CanManage(RankMember))
	assert.False(t, RankOfficer.CanManage(RankOfficer))
	assert.False(t, RankOfficer.CanManage(RankLeader))
	assert.False(t, RankMember.CanManage(RankMember))

	assert.Less(t, RankLeader.Weight(), RankOfficer.Weight())
	assert.Less(t, RankOfficer.Weight(), RankMember.Weight())
}

func TestNameSet(t *testing.T) {
	s := NewNameSet("b", "a")
	assert.True(t, s.Add("c"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, s.Sorted())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","c"]`, string(data))

	var back NameSet
	require.NoError(t, json.Unmarshal([]byte(`["x","y","x"]`), &back))
	assert.Len(t, back, 2)
	assert.True(t, back.Has("x"))
}

func TestNewClanDefaults(t *testing.T) {
	now := time.Now()
	c := NewClan("  Foo ", now)

	assert.Equal(t, "Foo", c.Name)
	assert.Equal(t, "foo", c.Key())
	assert.Equal(t, 1, c.Level)
	assert.NotNil(t, c.Members)
	assert.NotNil(t, c.ActiveWars)
	assert.Equal(t, uuid.Nil, c.Leader())
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	leader := uuid.New()
	c := NewClan("Foo", now)
	c.Members[leader] = &Member{ActorID: leader, Rank: RankLeader}
	c.ActiveWars["bar"] = NewWar("Bar", now)
	c.Allies.Add("baz")
	c.Kills[leader] = 3

	cp := c.Clone()
	cp.Members[leader].Rank = RankMember
	cp.ActiveWars["bar"].KillsSelf = 9
	cp.Allies.Add("qux")
	cp.Kills[leader] = 10

	assert.Equal(t, RankLeader, c.Members[leader].Rank)
	assert.Equal(t, 0, c.ActiveWars["bar"].KillsSelf)
	assert.False(t, c.Allies.Has("qux"))
	assert.Equal(t, 3, c.Kills[leader])
	assert.Equal(t, leader, c.Leader())
}

func TestRollDailyWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	actor := uuid.New()
	c := NewClan("Foo", start)
	c.DailyKills[actor] = 5

	assert.False(t, c.RollDailyWindow(start.Add(23*time.Hour)))
	assert.Equal(t, 5, c.DailyKills[actor])

	later := start.Add(25 * time.Hour)
	assert.True(t, c.RollDailyWindow(later))
	assert.Empty(t, c.DailyKills)
	assert.Equal(t, later, c.LastDailyReset)
}

func TestActivitySince(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want ActivityState
	}{
		{30 * time.Minute, ActivityActive},
		{5 * time.Hour, ActivityHours},
		{3 * 24 * time.Hour, ActivityDays},
		{10 * 24 * time.Hour, ActivityStale},
		{45 * 24 * time.Hour, ActivityInactive},
	}
	for _, tt := range tests {
		got := ActivitySince(now.Add(-tt.ago), now)
		assert.Equal(t, tt.want, got.State, "ago=%s", tt.ago)
	}

	a := ActivitySince(now.Add(-50*time.Hour), now)
	assert.Equal(t, int64(50), a.Hours)
	assert.Equal(t, int64(2), a.Days)
}
