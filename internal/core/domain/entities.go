package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DailyWindow is the rolling window for daily kill tracking
const DailyWindow = 24 * time.Hour

// NormalizeName returns the registry key for a clan name
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Member represents a clan member with their rank
type Member struct {
	ActorID  uuid.UUID `json:"actor_id"`
	Rank     Rank      `json:"rank"`
	JoinedAt time.Time `json:"joined_at"`
}

// War represents one side of an active war between two clans.
// KillsSelf counts kills made by the owning clan, KillsEnemy kills suffered.
type War struct {
	EnemyClanName string    `json:"enemy_clan"`
	StartTime     time.Time `json:"start_time"`
	KillsSelf     int       `json:"kills_self"`
	KillsEnemy    int       `json:"kills_enemy"`
	Active        bool      `json:"active"`
}

// NewWar creates an active war record against enemy
func NewWar(enemy string, now time.Time) *War {
	return &War{
		EnemyClanName: enemy,
		StartTime:     now,
		Active:        true,
	}
}

// Clan is the aggregate root for a clan and everything it owns
type Clan struct {
	Name  string  `json:"name"`
	Level int     `json:"level"`
	XP    float64 `json:"xp"`

	Members map[uuid.UUID]*Member `json:"members"`

	Coins        float64               `json:"coins"`
	Points       float64               `json:"points"`
	PlayerPoints map[uuid.UUID]float64 `json:"player_points"`

	Allies       NameSet         `json:"allies"`
	Enemies      NameSet         `json:"enemies"`
	ActiveWars   map[string]*War `json:"active_wars"`
	LockedChests NameSet         `json:"locked_chests"`

	Prefix       string `json:"prefix"`
	Description  string `json:"description"`
	Motd         string `json:"motd"`
	Title        string `json:"title"`
	Home         string `json:"home"`
	FriendlyFire bool   `json:"friendly_fire"`

	WarPoints    int       `json:"war_points"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Achievements NameSet   `json:"achievements"`
	LastActivity time.Time `json:"last_activity"`

	Kills          map[uuid.UUID]int `json:"kills"`
	Deaths         map[uuid.UUID]int `json:"deaths"`
	DailyKills     map[uuid.UUID]int `json:"daily_kills"`
	LastDailyReset time.Time         `json:"last_daily_reset"`
}

// NewClan creates an empty level 1 clan. Only the registry calls this.
func NewClan(name string, now time.Time) *Clan {
	c := &Clan{
		Name:           strings.TrimSpace(name),
		Level:          1,
		LastActivity:   now,
		LastDailyReset: now,
	}
	c.EnsureCollections()
	return c
}

// Key returns the normalized registry key
func (c *Clan) Key() string {
	return NormalizeName(c.Name)
}

// EnsureCollections allocates nil maps, used after decoding
func (c *Clan) EnsureCollections() {
	if c.Members == nil {
		c.Members = make(map[uuid.UUID]*Member)
	}
	if c.PlayerPoints == nil {
		c.PlayerPoints = make(map[uuid.UUID]float64)
	}
	if c.Allies == nil {
		c.Allies = NameSet{}
	}
	if c.Enemies == nil {
		c.Enemies = NameSet{}
	}
	if c.ActiveWars == nil {
		c.ActiveWars = make(map[string]*War)
	}
	if c.LockedChests == nil {
		c.LockedChests = NameSet{}
	}
	if c.Achievements == nil {
		c.Achievements = NameSet{}
	}
	if c.Kills == nil {
		c.Kills = make(map[uuid.UUID]int)
	}
	if c.Deaths == nil {
		c.Deaths = make(map[uuid.UUID]int)
	}
	if c.DailyKills == nil {
		c.DailyKills = make(map[uuid.UUID]int)
	}
	if c.Level < 1 {
		c.Level = 1
	}
}

// Member returns the member record for actorID
func (c *Clan) Member(actorID uuid.UUID) (*Member, bool) {
	m, ok := c.Members[actorID]
	return m, ok
}

// Leader returns the actor holding LEADER, or uuid.Nil
func (c *Clan) Leader() uuid.UUID {
	for id, m := range c.Members {
		if m.Rank == RankLeader {
			return id
		}
	}
	return uuid.Nil
}

// CountRank returns how many members hold rank
func (c *Clan) CountRank(rank Rank) int {
	n := 0
	for _, m := range c.Members {
		if m.Rank == rank {
			n++
		}
	}
	return n
}

// RollDailyWindow clears daily kills if the window expired and reports whether it did
func (c *Clan) RollDailyWindow(now time.Time) bool {
	if now.Sub(c.LastDailyReset) <= DailyWindow {
		return false
	}
	clear(c.DailyKills)
	c.LastDailyReset = now
	return true
}

// Clone returns a deep copy safe to hand out of the registry
func (c *Clan) Clone() *Clan {
	out := *c
	out.Members = make(map[uuid.UUID]*Member, len(c.Members))
	for id, m := range c.Members {
		cp := *m
		out.Members[id] = &cp
	}
	out.PlayerPoints = make(map[uuid.UUID]float64, len(c.PlayerPoints))
	for id, v := range c.PlayerPoints {
		out.PlayerPoints[id] = v
	}
	out.ActiveWars = make(map[string]*War, len(c.ActiveWars))
	for k, w := range c.ActiveWars {
		cp := *w
		out.ActiveWars[k] = &cp
	}
	out.Allies = c.Allies.Clone()
	out.Enemies = c.Enemies.Clone()
	out.LockedChests = c.LockedChests.Clone()
	out.Achievements = c.Achievements.Clone()
	out.Kills = cloneCounts(c.Kills)
	out.Deaths = cloneCounts(c.Deaths)
	out.DailyKills = cloneCounts(c.DailyKills)
	return &out
}

func cloneCounts(in map[uuid.UUID]int) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Bonus is the reward tuple granted at a clan level
type Bonus struct {
	Level     int     `json:"level" yaml:"-"`
	Coins     float64 `json:"coins" yaml:"coins"`
	XP        float64 `json:"xp" yaml:"xp"`
	Privilege string  `json:"privilege" yaml:"privilege"`
}

// ActivityState buckets how recently a clan was active
type ActivityState string

const (
	ActivityActive   ActivityState = "ACTIVE"
	ActivityHours    ActivityState = "HOURS"
	ActivityDays     ActivityState = "DAYS"
	ActivityStale    ActivityState = "STALE"
	ActivityInactive ActivityState = "INACTIVE"
)

// Activity describes a clan's last activity for display layers
type Activity struct {
	State ActivityState `json:"state"`
	Hours int64         `json:"hours"`
	Days  int64         `json:"days"`
}

// ActivitySince classifies the time elapsed since last
func ActivitySince(last, now time.Time) Activity {
	diff := now.Sub(last)
	hours := int64(diff / time.Hour)
	days := hours / 24
	a := Activity{Hours: hours, Days: days}
	switch {
	case hours < 1:
		a.State = ActivityActive
	case hours < 24:
		a.State = ActivityHours
	case days < 7:
		a.State = ActivityDays
	case days < 30:
		a.State = ActivityStale
	default:
		a.State = ActivityInactive
	}
	return a
}
