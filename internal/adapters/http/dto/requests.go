package dto

// CreateClanRequest creates a clan led by the caller
type CreateClanRequest struct {
	Name string `json:"name" validate:"required,clan_name"`
}

// RenameClanRequest renames the caller's clan
type RenameClanRequest struct {
	Name string `json:"name" validate:"required,clan_name"`
}

// TargetRequest names another actor
type TargetRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid"`
}

// ClanTargetRequest names another clan
type ClanTargetRequest struct {
	Clan string `json:"clan" validate:"required,clan_name"`
}

// AmountRequest carries a positive amount of points or xp
type AmountRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// TextRequest carries a metadata value
type TextRequest struct {
	Value string `json:"value" validate:"max=255"`
}

// HomeRequest carries a serialized location
type HomeRequest struct {
	Location string `json:"location" validate:"required,max=255"`
}

// ChestRequest carries an opaque chest location key
type ChestRequest struct {
	Chest string `json:"chest" validate:"required,max=255"`
}

// AchievementRequest names an achievement
type AchievementRequest struct {
	Achievement string `json:"achievement" validate:"required,max=64"`
}

// KillRequest reports a kill between two actors
type KillRequest struct {
	KillerID string `json:"killer_id" validate:"required,uuid"`
	VictimID string `json:"victim_id" validate:"required,uuid"`
}

// DeathRequest reports a death without a killer
type DeathRequest struct {
	VictimID string `json:"victim_id" validate:"required,uuid"`
}

// SetLevelRequest overrides a clan level
type SetLevelRequest struct {
	Level int `json:"level" validate:"required,min=1"`
}

// SetWarPointsRequest overrides clan war points
type SetWarPointsRequest struct {
	WarPoints int `json:"war_points" validate:"min=0"`
}

// SetCostRequest changes the clan creation price
type SetCostRequest struct {
	Cost float64 `json:"cost" validate:"min=0"`
}

// AddMemberRequest force-joins an actor to a clan
type AddMemberRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid"`
}

// TokenRequest mints a development token
type TokenRequest struct {
	ActorID string `json:"actor_id" validate:"omitempty,uuid"`
	Role    string `json:"role" validate:"omitempty,oneof=PLAYER ADMIN"`
}
