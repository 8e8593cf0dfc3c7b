package services

import (
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

// ============================================================
// Wars
// ============================================================

// warPartiesLocked resolves the actor's clan (leader required) and the enemy clan.
// Caller holds mu exclusively.
func (s *ClanService) warPartiesLocked(actorID uuid.UUID, enemyName string) (*domain.Clan, *domain.Clan, error) {
	clan, actor, err := s.actorClanLocked(actorID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireLeader(actor); err != nil {
		return nil, nil, err
	}
	enemyKey := domain.NormalizeName(enemyName)
	if enemyKey == clan.Key() {
		return nil, nil, domain.ErrSelfWar
	}
	e, ok := s.clans[enemyKey]
	if !ok {
		return nil, nil, domain.ErrClanNotFound
	}
	return clan, e.clan, nil
}

// DeclareWar opens a war between the actor's clan and enemyName. Both sides
// get their War record in the same step.
func (s *ClanService) DeclareWar(actorID uuid.UUID, enemyName string) error {
	s.mu.Lock()
	clan, enemy, err := s.warPartiesLocked(actorID, enemyName)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	key, enemyKey := clan.Key(), enemy.Key()
	if _, atWar := clan.ActiveWars[enemyKey]; atWar {
		s.mu.Unlock()
		return domain.ErrAlreadyAtWar
	}
	if len(clan.ActiveWars) >= s.opts.MaxActiveWars || len(enemy.ActiveWars) >= s.opts.MaxActiveWars {
		s.mu.Unlock()
		return domain.ErrWarLimit
	}

	now := s.now()
	clan.ActiveWars[enemyKey] = domain.NewWar(enemy.Name, now)
	enemy.ActiveWars[key] = domain.NewWar(clan.Name, now)
	clan.LastActivity = now
	s.persister.MarkDirty(key)
	s.persister.MarkDirty(enemyKey)
	clanName, enemyDisplay := clan.Name, enemy.Name
	s.mu.Unlock()

	s.broadcaster.WarDeclared(clanName, enemyDisplay)
	return nil
}

// EndWar closes the war on both sides. The outcome is read from the ending
// clan's own War record: strictly more kills on either counter wins.
func (s *ClanService) EndWar(actorID uuid.UUID, enemyName string) error {
	s.mu.Lock()
	clan, enemy, err := s.warPartiesLocked(actorID, enemyName)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	key, enemyKey := clan.Key(), enemy.Key()
	war, atWar := clan.ActiveWars[enemyKey]
	if !atWar {
		s.mu.Unlock()
		return domain.ErrNotAtWar
	}
	delete(clan.ActiveWars, enemyKey)
	delete(enemy.ActiveWars, key)

	winner := ""
	switch {
	case war.KillsSelf > war.KillsEnemy:
		s.settleWar(clan, enemy)
		winner = clan.Name
	case war.KillsEnemy > war.KillsSelf:
		s.settleWar(enemy, clan)
		winner = enemy.Name
	}
	s.persister.MarkDirty(key)
	s.persister.MarkDirty(enemyKey)
	clanName, enemyDisplay := clan.Name, enemy.Name
	s.mu.Unlock()

	s.broadcaster.WarEnded(clanName, enemyDisplay, winner)
	return nil
}

func (s *ClanService) settleWar(winner, loser *domain.Clan) {
	winner.Wins++
	winner.WarPoints += s.opts.WarWinPoints
	loser.Losses++
}

// MakePeace removes the war and the enemy marks on both sides
func (s *ClanService) MakePeace(actorID uuid.UUID, enemyName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clan, enemy, err := s.warPartiesLocked(actorID, enemyName)
	if err != nil {
		return err
	}

	key, enemyKey := clan.Key(), enemy.Key()
	_, atWar := clan.ActiveWars[enemyKey]
	_, enemyAtWar := enemy.ActiveWars[key]
	delete(clan.ActiveWars, enemyKey)
	delete(enemy.ActiveWars, key)
	marked := clan.Enemies.Remove(enemyKey)
	enemyMarked := enemy.Enemies.Remove(key)

	if !atWar && !enemyAtWar && !marked && !enemyMarked {
		return domain.ErrNotAtWar
	}
	s.persister.MarkDirty(key)
	s.persister.MarkDirty(enemyKey)
	return nil
}

// ============================================================
// Relations
// ============================================================

// relation runs fn on the actor's clan once the target is known to exist and
// differ from it. LEADER only.
func (s *ClanService) relation(actorID uuid.UUID, target string, mustExist bool, fn func(c *domain.Clan, targetKey string)) error {
	targetKey := domain.NormalizeName(target)

	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.members[actorID]
	if !ok {
		return domain.ErrNotInClan
	}
	if targetKey == key {
		return domain.ErrSelfRelation
	}
	if _, exists := s.clans[targetKey]; mustExist && !exists {
		return domain.ErrClanNotFound
	}

	e := s.clans[key]
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := requireLeader(e.clan.Members[actorID]); err != nil {
		return err
	}
	fn(e.clan, targetKey)
	s.persister.MarkDirty(key)
	return nil
}

// AllyAdd marks target as ally and clears any enemy mark
func (s *ClanService) AllyAdd(actorID uuid.UUID, target string) error {
	return s.relation(actorID, target, true, func(c *domain.Clan, targetKey string) {
		c.Allies.Add(targetKey)
		c.Enemies.Remove(targetKey)
	})
}

// AllyRemove drops an ally mark
func (s *ClanService) AllyRemove(actorID uuid.UUID, target string) error {
	return s.relation(actorID, target, false, func(c *domain.Clan, targetKey string) {
		c.Allies.Remove(targetKey)
	})
}

// EnemyAdd marks target as enemy and clears any ally mark
func (s *ClanService) EnemyAdd(actorID uuid.UUID, target string) error {
	return s.relation(actorID, target, true, func(c *domain.Clan, targetKey string) {
		c.Enemies.Add(targetKey)
		c.Allies.Remove(targetKey)
	})
}

// EnemyRemove drops an enemy mark
func (s *ClanService) EnemyRemove(actorID uuid.UUID, target string) error {
	return s.relation(actorID, target, false, func(c *domain.Clan, targetKey string) {
		c.Enemies.Remove(targetKey)
	})
}

// ============================================================
// Combat
// ============================================================

// RecordKill credits the killer's clan and counts a death for the victim's clan.
// Only the killer's War record moves; the victim's record is left as is.
func (s *ClanService) RecordKill(killerID, victimID uuid.UUID) {
	s.mu.Lock()

	now := s.now()
	killerKey, killerIn := s.members[killerID]
	victimKey, victimIn := s.members[victimID]

	var levelUp *levelEvent
	if killerIn {
		killer := s.clans[killerKey].clan
		killer.Kills[killerID]++
		killer.LastActivity = now
		killer.RollDailyWindow(now)
		killer.DailyKills[killerID]++

		if victimIn && victimKey != killerKey {
			if war, atWar := killer.ActiveWars[victimKey]; atWar && war.Active {
				war.KillsSelf++
			}
		}

		levelUp = s.addXPLocked(killer, s.opts.XPPerKill)
		s.persister.MarkDirty(killerKey)
	}
	if victimIn {
		s.clans[victimKey].clan.Deaths[victimID]++
		s.persister.MarkDirty(victimKey)
	}
	s.mu.Unlock()

	s.announce(levelUp)
}

// RecordDeath counts a death that had no killer
func (s *ClanService) RecordDeath(victimID uuid.UUID) {
	_ = s.mutateActorClan(victimID, func(c *domain.Clan, _ *domain.Member) error {
		c.Deaths[victimID]++
		return nil
	})
}
