package domain

import "errors"

// Registry errors
var (
	ErrClanNotFound  = errors.New("clan not found")
	ErrClanExists    = errors.New("clan name already taken")
	ErrInvalidName   = errors.New("invalid clan name")
	ErrAlreadyInClan = errors.New("player already belongs to a clan")
	ErrNotInClan     = errors.New("player is not in a clan")
	ErrNotMember     = errors.New("target is not a member of this clan")
	ErrClanFull      = errors.New("clan has reached the member limit")
	ErrNoInvite      = errors.New("no pending invite")
	ErrInvalidRank   = errors.New("invalid rank")
)

// Permission errors
var (
	ErrNoPermission       = errors.New("insufficient clan rank")
	ErrNotLeader          = errors.New("only the clan leader can do this")
	ErrLeaderMustTransfer = errors.New("leader must transfer leadership first")
	ErrSelfAction         = errors.New("cannot target yourself")
	ErrCannotDemoteLeader = errors.New("leader cannot be demoted")
	ErrRankLimit          = errors.New("rank cannot be changed further")
)

// War and relation errors
var (
	ErrSelfWar      = errors.New("cannot declare war on your own clan")
	ErrAlreadyAtWar = errors.New("already at war with this clan")
	ErrNotAtWar     = errors.New("not at war with this clan")
	ErrWarLimit     = errors.New("maximum active wars reached")
	ErrSelfRelation = errors.New("cannot target your own clan")
)

// Ledger errors
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientPoints = errors.New("insufficient clan points")
)

// Misc errors
var (
	ErrChestLocked       = errors.New("chest already locked by a clan")
	ErrChestNotLocked    = errors.New("chest is not locked by this clan")
	ErrAchievementExists = errors.New("achievement already unlocked")
	ErrNoHome            = errors.New("clan home is not set")
	ErrTextTooLong       = errors.New("text is too long")
	ErrEmptyValue        = errors.New("value must not be empty")
)
