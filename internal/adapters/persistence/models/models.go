package models

import (
	"time"

	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================
// Clan tables
// ============================================================

// Clan represents clans table. Name is the normalized registry key.
type Clan struct {
	Name           string         `gorm:"primaryKey;size:32" json:"name"`
	DisplayName    string         `gorm:"size:32;not null" json:"display_name"`
	Level          int            `gorm:"not null;default:1" json:"level"`
	XP             float64        `gorm:"not null;default:0" json:"xp"`
	Coins          float64        `gorm:"not null;default:0" json:"coins"`
	Points         float64        `gorm:"not null;default:0" json:"points"`
	Prefix         string         `gorm:"size:32" json:"prefix"`
	Description    string         `gorm:"type:text" json:"description"`
	Motd           string         `gorm:"type:text" json:"motd"`
	Title          string         `gorm:"size:64" json:"title"`
	Home           string         `gorm:"size:255" json:"home"`
	FriendlyFire   bool           `gorm:"default:false" json:"friendly_fire"`
	WarPoints      int            `gorm:"not null;default:0" json:"war_points"`
	Wins           int            `gorm:"not null;default:0" json:"wins"`
	Losses         int            `gorm:"not null;default:0" json:"losses"`
	Allies         domain.NameSet `gorm:"serializer:json;type:text" json:"allies"`
	Enemies        domain.NameSet `gorm:"serializer:json;type:text" json:"enemies"`
	LockedChests   domain.NameSet `gorm:"serializer:json;type:text" json:"locked_chests"`
	Achievements   domain.NameSet `gorm:"serializer:json;type:text" json:"achievements"`
	LastActivity   time.Time      `json:"last_activity"`
	LastDailyReset time.Time      `json:"last_daily_reset"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Clan) TableName() string {
	return "clans"
}

// ClanMember represents clan_members table, one row per (clan, actor)
type ClanMember struct {
	ClanName     string    `gorm:"primaryKey;size:32" json:"clan_name"`
	ActorID      string    `gorm:"primaryKey;size:36" json:"actor_id"`
	Rank         string    `gorm:"size:16;not null" json:"rank"`
	JoinedAt     time.Time `json:"joined_at"`
	Kills        int       `gorm:"not null;default:0" json:"kills"`
	Deaths       int       `gorm:"not null;default:0" json:"deaths"`
	DailyKills   int       `gorm:"not null;default:0" json:"daily_kills"`
	PlayerPoints float64   `gorm:"not null;default:0" json:"player_points"`
}

func (ClanMember) TableName() string {
	return "clan_members"
}

// ClanWar represents clan_wars table, one row per side of a war
type ClanWar struct {
	ClanName   string    `gorm:"primaryKey;size:32" json:"clan_name"`
	EnemyName  string    `gorm:"primaryKey;size:32" json:"enemy_name"`
	EnemyLabel string    `gorm:"size:32" json:"enemy_label"`
	StartTime  time.Time `json:"start_time"`
	KillsSelf  int       `gorm:"not null;default:0" json:"kills_self"`
	KillsEnemy int       `gorm:"not null;default:0" json:"kills_enemy"`
	Active     bool      `gorm:"default:true" json:"active"`
}

func (ClanWar) TableName() string {
	return "clan_wars"
}

// AutoMigrate creates missing clan tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Clan{}, &ClanMember{}, &ClanWar{})
}

// ============================================================
// Mapping
// ============================================================

// FromDomain flattens a clan into its table rows
func FromDomain(c *domain.Clan) (Clan, []ClanMember, []ClanWar) {
	key := c.Key()
	row := Clan{
		Name:           key,
		DisplayName:    c.Name,
		Level:          c.Level,
		XP:             c.XP,
		Coins:          c.Coins,
		Points:         c.Points,
		Prefix:         c.Prefix,
		Description:    c.Description,
		Motd:           c.Motd,
		Title:          c.Title,
		Home:           c.Home,
		FriendlyFire:   c.FriendlyFire,
		WarPoints:      c.WarPoints,
		Wins:           c.Wins,
		Losses:         c.Losses,
		Allies:         c.Allies.Clone(),
		Enemies:        c.Enemies.Clone(),
		LockedChests:   c.LockedChests.Clone(),
		Achievements:   c.Achievements.Clone(),
		LastActivity:   c.LastActivity,
		LastDailyReset: c.LastDailyReset,
	}

	members := make([]ClanMember, 0, len(c.Members))
	for id, m := range c.Members {
		members = append(members, ClanMember{
			ClanName:     key,
			ActorID:      id.String(),
			Rank:         m.Rank.String(),
			JoinedAt:     m.JoinedAt,
			Kills:        c.Kills[id],
			Deaths:       c.Deaths[id],
			DailyKills:   c.DailyKills[id],
			PlayerPoints: c.PlayerPoints[id],
		})
	}

	wars := make([]ClanWar, 0, len(c.ActiveWars))
	for enemyKey, w := range c.ActiveWars {
		wars = append(wars, ClanWar{
			ClanName:   key,
			EnemyName:  enemyKey,
			EnemyLabel: w.EnemyClanName,
			StartTime:  w.StartTime,
			KillsSelf:  w.KillsSelf,
			KillsEnemy: w.KillsEnemy,
			Active:     w.Active,
		})
	}
	return row, members, wars
}

// ToDomain rebuilds a clan without members or wars
func (r *Clan) ToDomain() *domain.Clan {
	c := &domain.Clan{
		Name:           r.DisplayName,
		Level:          r.Level,
		XP:             r.XP,
		Coins:          r.Coins,
		Points:         r.Points,
		Prefix:         r.Prefix,
		Description:    r.Description,
		Motd:           r.Motd,
		Title:          r.Title,
		Home:           r.Home,
		FriendlyFire:   r.FriendlyFire,
		WarPoints:      r.WarPoints,
		Wins:           r.Wins,
		Losses:         r.Losses,
		Allies:         r.Allies,
		Enemies:        r.Enemies,
		LockedChests:   r.LockedChests,
		Achievements:   r.Achievements,
		LastActivity:   r.LastActivity,
		LastDailyReset: r.LastDailyReset,
	}
	if c.Name == "" {
		c.Name = r.Name
	}
	c.EnsureCollections()
	return c
}

// Attach adds the member row to clan, returning an error for malformed rows
func (m *ClanMember) Attach(c *domain.Clan) error {
	id, err := uuid.Parse(m.ActorID)
	if err != nil {
		return err
	}
	rank, err := domain.ParseRank(m.Rank)
	if err != nil {
		return err
	}
	c.Members[id] = &domain.Member{ActorID: id, Rank: rank, JoinedAt: m.JoinedAt}
	if m.Kills != 0 {
		c.Kills[id] = m.Kills
	}
	if m.Deaths != 0 {
		c.Deaths[id] = m.Deaths
	}
	if m.DailyKills != 0 {
		c.DailyKills[id] = m.DailyKills
	}
	if m.PlayerPoints != 0 {
		c.PlayerPoints[id] = m.PlayerPoints
	}
	return nil
}

// Attach adds the war row to clan
func (w *ClanWar) Attach(c *domain.Clan) {
	label := w.EnemyLabel
	if label == "" {
		label = w.EnemyName
	}
	c.ActiveWars[w.EnemyName] = &domain.War{
		EnemyClanName: label,
		StartTime:     w.StartTime,
		KillsSelf:     w.KillsSelf,
		KillsEnemy:    w.KillsEnemy,
		Active:        w.Active,
	}
}
