package services

import (
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

// ============================================================
// Membership
// ============================================================

// AddMember joins actorID to the named clan as MEMBER
func (s *ClanService) AddMember(name string, actorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.clans[domain.NormalizeName(name)]
	if !ok {
		return domain.ErrClanNotFound
	}
	return s.addMemberLocked(e.clan, actorID)
}

// addMemberLocked requires mu held exclusively
func (s *ClanService) addMemberLocked(clan *domain.Clan, actorID uuid.UUID) error {
	if _, member := s.members[actorID]; member {
		return domain.ErrAlreadyInClan
	}
	if len(clan.Members) >= s.opts.MaxMembers {
		return domain.ErrClanFull
	}

	now := s.now()
	clan.Members[actorID] = &domain.Member{ActorID: actorID, Rank: domain.RankMember, JoinedAt: now}
	clan.LastActivity = now
	key := clan.Key()
	s.members[actorID] = key
	s.dropInvite(actorID)
	s.persister.MarkDirty(key)
	return nil
}

// KickMember removes targetID from the named clan without a rank check
func (s *ClanService) KickMember(name string, targetID uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.clans[domain.NormalizeName(name)]
	if !ok {
		s.mu.Unlock()
		return domain.ErrClanNotFound
	}
	if _, member := e.clan.Members[targetID]; !member {
		s.mu.Unlock()
		return domain.ErrNotMember
	}
	disbanded, err := s.removeMemberLocked(e.clan, targetID)
	s.mu.Unlock()
	return s.afterRemove(disbanded, err)
}

// Kick removes targetID on behalf of actorID, who must outrank the target
func (s *ClanService) Kick(actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return domain.ErrSelfAction
	}

	s.mu.Lock()
	clan, actor, err := s.actorClanLocked(actorID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	target, ok := clan.Member(targetID)
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotMember
	}
	if !actor.Rank.CanManage(target.Rank) {
		s.mu.Unlock()
		return domain.ErrNoPermission
	}
	disbanded, err := s.removeMemberLocked(clan, targetID)
	s.mu.Unlock()
	return s.afterRemove(disbanded, err)
}

// LeaveClan removes actorID from its clan. The last member leaving disbands it.
func (s *ClanService) LeaveClan(actorID uuid.UUID) error {
	s.mu.Lock()
	clan, _, err := s.actorClanLocked(actorID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	disbanded, err := s.removeMemberLocked(clan, actorID)
	s.mu.Unlock()
	return s.afterRemove(disbanded, err)
}

// removeMemberLocked drops the member and its personal counters. Returns the
// clan name when the clan was destroyed. Caller holds mu exclusively.
func (s *ClanService) removeMemberLocked(clan *domain.Clan, actorID uuid.UUID) (string, error) {
	m := clan.Members[actorID]
	if m.Rank == domain.RankLeader && len(clan.Members) > 1 {
		return "", domain.ErrLeaderMustTransfer
	}

	key := clan.Key()
	delete(clan.Members, actorID)
	delete(clan.Kills, actorID)
	delete(clan.Deaths, actorID)
	delete(clan.DailyKills, actorID)
	delete(clan.PlayerPoints, actorID)
	delete(s.members, actorID)
	s.toggleMu.Lock()
	delete(s.chatters, actorID)
	s.toggleMu.Unlock()

	if len(clan.Members) == 0 {
		return s.deleteClanLocked(key)
	}
	s.persister.MarkDirty(key)
	return "", nil
}

func (s *ClanService) afterRemove(disbanded string, err error) error {
	if err != nil {
		return err
	}
	if disbanded != "" {
		s.broadcaster.ClanDisbanded(disbanded)
	}
	return nil
}

// ============================================================
// Invites
// ============================================================

// Invite records a pending invite from actorID's clan to targetID. OFFICER or higher.
func (s *ClanService) Invite(actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return domain.ErrSelfAction
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.members[actorID]
	if !ok {
		return domain.ErrNotInClan
	}
	if _, member := s.members[targetID]; member {
		return domain.ErrAlreadyInClan
	}

	e := s.clans[key]
	e.mu.Lock()
	rank := e.clan.Members[actorID].Rank
	e.mu.Unlock()
	if rank.Weight() > domain.RankOfficer.Weight() {
		return domain.ErrNoPermission
	}

	s.inviteMu.Lock()
	s.invites[targetID] = key
	s.inviteMu.Unlock()
	return nil
}

// AcceptInvite joins actorID to the clan that invited it
func (s *ClanService) AcceptInvite(actorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inviteMu.Lock()
	key, ok := s.invites[actorID]
	s.inviteMu.Unlock()
	if !ok {
		return domain.ErrNoInvite
	}
	e, ok := s.clans[key]
	if !ok {
		s.dropInvite(actorID)
		return domain.ErrClanNotFound
	}
	return s.addMemberLocked(e.clan, actorID)
}

// DeclineInvite discards a pending invite
func (s *ClanService) DeclineInvite(actorID uuid.UUID) error {
	s.inviteMu.Lock()
	defer s.inviteMu.Unlock()
	if _, ok := s.invites[actorID]; !ok {
		return domain.ErrNoInvite
	}
	delete(s.invites, actorID)
	return nil
}

// PendingInvite returns the display name of the inviting clan
func (s *ClanService) PendingInvite(actorID uuid.UUID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.inviteMu.Lock()
	key, ok := s.invites[actorID]
	s.inviteMu.Unlock()
	if !ok {
		return "", false
	}
	e, ok := s.clans[key]
	if !ok {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clan.Name, true
}

func (s *ClanService) dropInvite(actorID uuid.UUID) {
	s.inviteMu.Lock()
	delete(s.invites, actorID)
	s.inviteMu.Unlock()
}

// ============================================================
// Ranks
// ============================================================

// Promote raises targetID one rank. Promoting an OFFICER hands over leadership
// and the acting leader becomes OFFICER.
func (s *ClanService) Promote(actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return domain.ErrSelfAction
	}
	return s.mutateActorClan(actorID, func(c *domain.Clan, actor *domain.Member) error {
		target, ok := c.Member(targetID)
		if !ok {
			return domain.ErrNotMember
		}
		if target.Rank == domain.RankLeader {
			return domain.ErrRankLimit
		}
		if !actor.Rank.CanManage(target.Rank) {
			return domain.ErrNoPermission
		}

		switch target.Rank {
		case domain.RankMember:
			target.Rank = domain.RankOfficer
		case domain.RankOfficer:
			target.Rank = domain.RankLeader
			actor.Rank = domain.RankOfficer
		}
		return nil
	})
}

// Demote lowers an OFFICER to MEMBER
func (s *ClanService) Demote(actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return domain.ErrSelfAction
	}
	return s.mutateActorClan(actorID, func(c *domain.Clan, actor *domain.Member) error {
		target, ok := c.Member(targetID)
		if !ok {
			return domain.ErrNotMember
		}
		switch target.Rank {
		case domain.RankLeader:
			return domain.ErrCannotDemoteLeader
		case domain.RankMember:
			return domain.ErrRankLimit
		}
		if !actor.Rank.CanManage(target.Rank) {
			return domain.ErrNoPermission
		}
		target.Rank = domain.RankMember
		return nil
	})
}

// Transfer hands leadership to targetID; the old leader becomes OFFICER
func (s *ClanService) Transfer(actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return domain.ErrSelfAction
	}
	return s.mutateActorClan(actorID, func(c *domain.Clan, actor *domain.Member) error {
		if err := requireLeader(actor); err != nil {
			return err
		}
		target, ok := c.Member(targetID)
		if !ok {
			return domain.ErrNotMember
		}
		target.Rank = domain.RankLeader
		actor.Rank = domain.RankOfficer
		return nil
	})
}

// ============================================================
// Rename
// ============================================================

// Rename changes the clan name and re-keys every reference to it
func (s *ClanService) Rename(actorID uuid.UUID, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	newName = trimName(newName)

	s.mu.Lock()
	defer s.mu.Unlock()

	clan, actor, err := s.actorClanLocked(actorID)
	if err != nil {
		return err
	}
	if err := requireLeader(actor); err != nil {
		return err
	}

	oldKey := clan.Key()
	newKey := domain.NormalizeName(newName)
	if newKey != oldKey {
		if _, taken := s.clans[newKey]; taken {
			return domain.ErrClanExists
		}
	}

	oldName := clan.Name
	clan.Name = newName
	if clan.Prefix == oldName {
		clan.Prefix = newName
	}
	if newKey == oldKey {
		s.persister.MarkDirty(oldKey)
		return nil
	}

	s.clans[newKey] = s.clans[oldKey]
	delete(s.clans, oldKey)
	for id := range clan.Members {
		s.members[id] = newKey
	}

	s.inviteMu.Lock()
	for id, invited := range s.invites {
		if invited == oldKey {
			s.invites[id] = newKey
		}
	}
	s.inviteMu.Unlock()

	for otherKey, other := range s.clans {
		if otherKey == newKey {
			continue
		}
		changed := false
		if other.clan.Allies.Remove(oldKey) {
			other.clan.Allies.Add(newKey)
			changed = true
		}
		if other.clan.Enemies.Remove(oldKey) {
			other.clan.Enemies.Add(newKey)
			changed = true
		}
		if war, atWar := other.clan.ActiveWars[oldKey]; atWar {
			delete(other.clan.ActiveWars, oldKey)
			war.EnemyClanName = newName
			other.clan.ActiveWars[newKey] = war
			changed = true
		}
		if changed {
			s.persister.MarkDirty(otherKey)
		}
	}

	s.persister.MarkDeleted(oldKey)
	s.persister.MarkDirty(newKey)
	return nil
}
