package domain

import (
	"fmt"
	"strings"
)

// Rank represents a member's rank inside a clan
type Rank string

const (
	RankLeader  Rank = "LEADER"
	RankOfficer Rank = "OFFICER"
	RankMember  Rank = "MEMBER"
)

// ParseRank converts user or storage input into a Rank
func ParseRank(s string) (Rank, error) {
	switch Rank(strings.ToUpper(strings.TrimSpace(s))) {
	case RankLeader:
		return RankLeader, nil
	case RankOfficer:
		return RankOfficer, nil
	case RankMember:
		return RankMember, nil
	default:
		return "", fmt.Errorf("%w: unknown rank %q", ErrInvalidRank, s)
	}
}

// CanManage reports whether r has management rights over other.
// LEADER manages everyone, OFFICER manages only MEMBER.
func (r Rank) CanManage(other Rank) bool {
	if r == RankLeader {
		return true
	}
	return r == RankOfficer && other == RankMember
}

// Weight orders ranks from highest (0) to lowest
func (r Rank) Weight() int {
	switch r {
	case RankLeader:
		return 0
	case RankOfficer:
		return 1
	default:
		return 2
	}
}

func (r Rank) String() string {
	return string(r)
}
