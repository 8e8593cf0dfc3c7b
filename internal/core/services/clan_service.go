package services

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/4rubka/ClanMaster/internal/adapters/persistence/repositories"
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
)

var clanNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

// ValidateName checks a clan display name
func ValidateName(name string) error {
	if !clanNamePattern.MatchString(strings.TrimSpace(name)) {
		return domain.ErrInvalidName
	}
	return nil
}

func trimName(name string) string {
	return strings.TrimSpace(name)
}

// clanEntry guards one clan for single-clan operations under the shared registry lock
type clanEntry struct {
	mu   sync.Mutex
	clan *domain.Clan
}

// ClanService is the authoritative in-memory clan registry.
//
// Locking: mu is held exclusively by operations that change the key set, the
// actor index, or more than one clan. Single-clan operations hold mu shared
// plus the clan's entry mutex, and never more than one entry mutex at a time.
type ClanService struct {
	mu      sync.RWMutex
	clans   map[string]*clanEntry
	members map[uuid.UUID]string // actor -> clan key

	inviteMu sync.Mutex
	invites  map[uuid.UUID]string // actor -> clan key

	toggleMu sync.Mutex
	spies    map[uuid.UUID]struct{}
	chatters map[uuid.UUID]struct{}

	opts        ClanOptions
	bonuses     *BonusService
	funds       FundsProvider
	broadcaster Broadcaster
	storage     repositories.ClanStorage
	persister   *Persister

	now func() time.Time
}

// NewClanService seeds the registry from storage. A failed load starts an empty
// registry and keeps the persister from overwriting storage with nothing.
func NewClanService(
	ctx context.Context,
	storage repositories.ClanStorage,
	bonuses *BonusService,
	opts ClanOptions,
	funds FundsProvider,
	broadcaster Broadcaster,
	ioTimeout time.Duration,
	ioRetries uint,
) *ClanService {
	if broadcaster == nil {
		broadcaster = NewNotificationService(nil)
	}
	s := &ClanService{
		clans:       make(map[string]*clanEntry),
		members:     make(map[uuid.UUID]string),
		invites:     make(map[uuid.UUID]string),
		spies:       make(map[uuid.UUID]struct{}),
		chatters:    make(map[uuid.UUID]struct{}),
		opts:        opts,
		bonuses:     bonuses,
		funds:       funds,
		broadcaster: broadcaster,
		storage:     storage,
		now:         time.Now,
	}
	s.persister = NewPersister(storage, s, ioTimeout, ioRetries)

	loadCtx, cancel := context.WithTimeout(ctx, s.persister.timeout)
	defer cancel()
	clans, err := storage.LoadAll(loadCtx)
	if err != nil {
		log.Printf("❌ Failed to load clans, starting empty: %v", err)
		s.persister.setLoadFailed(true)
		return s
	}

	keys := make([]string, 0, len(clans))
	for key := range clans {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		clan := clans[key]
		if clan == nil {
			continue
		}
		clan.EnsureCollections()
		repaired := false
		for id := range clan.Members {
			if other, taken := s.members[id]; taken {
				log.Printf("⚠️ Actor %s is in both %s and %s, keeping %s", id, other, key, other)
				delete(clan.Members, id)
				repaired = true
			}
		}
		keep, fixed := repairLoaded(key, clan)
		if !keep {
			s.persister.MarkDeleted(key)
			continue
		}

		s.clans[key] = &clanEntry{clan: clan}
		for id := range clan.Members {
			s.members[id] = key
		}
		if repaired || fixed {
			s.persister.MarkDirty(key)
		}
	}

	// a war is kept only when both sides still hold it
	for _, key := range keys {
		e, ok := s.clans[key]
		if !ok {
			continue
		}
		for enemyKey := range e.clan.ActiveWars {
			if other, ok := s.clans[enemyKey]; ok {
				if _, mirrored := other.clan.ActiveWars[key]; mirrored {
					continue
				}
			}
			log.Printf("⚠️ Clan %s has a one-sided war with %s, dropping it", key, enemyKey)
			delete(e.clan.ActiveWars, enemyKey)
			s.persister.MarkDirty(key)
		}
	}
	log.Printf("✅ Loaded %d clans (%d members)", len(s.clans), len(s.members))
	return s
}

// repairLoaded restores the single-leader rule on a clan read from storage.
// keep is false for a clan left without members, which is never registered.
func repairLoaded(key string, clan *domain.Clan) (keep, repaired bool) {
	members := make([]*domain.Member, 0, len(clan.Members))
	for id, m := range clan.Members {
		if m == nil {
			delete(clan.Members, id)
			repaired = true
			continue
		}
		members = append(members, m)
	}
	if len(members) == 0 {
		log.Printf("⚠️ Dropping clan %s: stored without members", key)
		return false, repaired
	}

	// longest tenure first
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].ActorID.String() < members[j].ActorID.String()
	})

	var leader *domain.Member
	for _, m := range members {
		if m.Rank != domain.RankLeader {
			continue
		}
		if leader == nil {
			leader = m
			continue
		}
		log.Printf("⚠️ Clan %s has more than one leader, demoting %s to officer", key, m.ActorID)
		m.Rank = domain.RankOfficer
		repaired = true
	}
	if leader == nil {
		log.Printf("⚠️ Clan %s has no leader, promoting %s", key, members[0].ActorID)
		members[0].Rank = domain.RankLeader
		repaired = true
	}
	return true, repaired
}

// Start launches the background persister
func (s *ClanService) Start() {
	s.persister.Start()
}

// Save synchronously writes the whole registry
func (s *ClanService) Save(ctx context.Context) error {
	return s.persister.SaveAll(ctx)
}

// Flush synchronously writes pending changes
func (s *ClanService) Flush(ctx context.Context) error {
	return s.persister.Flush(ctx)
}

// Shutdown stops the persister after a final full save
func (s *ClanService) Shutdown(ctx context.Context) error {
	return s.persister.Stop(ctx)
}

// Persister exposes the background writer, mainly for health reporting
func (s *ClanService) Persister() *Persister {
	return s.persister
}

// ============================================================
// Lock helpers
// ============================================================

// mutateClan runs fn on the named clan and marks it dirty when fn succeeds
func (s *ClanService) mutateClan(name string, fn func(c *domain.Clan) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.clans[domain.NormalizeName(name)]
	if !ok {
		return domain.ErrClanNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.clan); err != nil {
		return err
	}
	s.persister.MarkDirty(e.clan.Key())
	return nil
}

// mutateActorClan runs fn on the actor's clan with the actor's member record
func (s *ClanService) mutateActorClan(actorID uuid.UUID, fn func(c *domain.Clan, m *domain.Member) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.members[actorID]
	if !ok {
		return domain.ErrNotInClan
	}
	e := s.clans[key]
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.clan.Member(actorID)
	if !ok {
		return domain.ErrNotInClan
	}
	if err := fn(e.clan, m); err != nil {
		return err
	}
	s.persister.MarkDirty(key)
	return nil
}

// viewClan runs fn on the named clan without marking it dirty
func (s *ClanService) viewClan(name string, fn func(c *domain.Clan)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.clans[domain.NormalizeName(name)]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.clan)
	return true
}

// viewActorClan runs fn on the actor's clan without marking it dirty
func (s *ClanService) viewActorClan(actorID uuid.UUID, fn func(c *domain.Clan)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.members[actorID]
	if !ok {
		return false
	}
	e := s.clans[key]
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.clan)
	return true
}

// actorClanLocked resolves the actor's clan. Caller holds mu exclusively.
func (s *ClanService) actorClanLocked(actorID uuid.UUID) (*domain.Clan, *domain.Member, error) {
	key, ok := s.members[actorID]
	if !ok {
		return nil, nil, domain.ErrNotInClan
	}
	clan := s.clans[key].clan
	m, ok := clan.Member(actorID)
	if !ok {
		return nil, nil, domain.ErrNotInClan
	}
	return clan, m, nil
}

func requireLeader(m *domain.Member) error {
	if m.Rank != domain.RankLeader {
		return domain.ErrNotLeader
	}
	return nil
}

// ============================================================
// Create / Delete
// ============================================================

// CreateClan registers a new clan with leaderID as its only member
func (s *ClanService) CreateClan(name string, leaderID uuid.UUID) (*domain.Clan, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	cost := s.CreateCost()
	if s.funds != nil && cost > 0 {
		if !s.funds.Has(leaderID, cost) {
			return nil, domain.ErrInsufficientFunds
		}
		if err := s.funds.Withdraw(leaderID, cost); err != nil {
			return nil, domain.ErrInsufficientFunds
		}
	}

	clan, err := s.createClan(name, leaderID)
	if err != nil {
		if s.funds != nil && cost > 0 {
			if rerr := s.funds.Deposit(leaderID, cost); rerr != nil {
				log.Printf("❌ Failed to refund clan creation cost to %s: %v", leaderID, rerr)
			}
		}
		return nil, err
	}
	log.Printf("✅ Clan %s created by %s", clan.Name, leaderID)
	return clan, nil
}

func (s *ClanService) createClan(name string, leaderID uuid.UUID) (*domain.Clan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormalizeName(name)
	if _, exists := s.clans[key]; exists {
		return nil, domain.ErrClanExists
	}
	if _, member := s.members[leaderID]; member {
		return nil, domain.ErrAlreadyInClan
	}

	now := s.now()
	clan := domain.NewClan(name, now)
	clan.Members[leaderID] = &domain.Member{ActorID: leaderID, Rank: domain.RankLeader, JoinedAt: now}

	s.clans[key] = &clanEntry{clan: clan}
	s.members[leaderID] = key
	s.dropInvite(leaderID)
	s.persister.MarkDirty(key)
	return clan.Clone(), nil
}

// DeleteClan removes a clan and every reference other clans hold to it
func (s *ClanService) DeleteClan(name string) error {
	s.mu.Lock()
	display, err := s.deleteClanLocked(domain.NormalizeName(name))
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.broadcaster.ClanDisbanded(display)
	return nil
}

// Disband deletes the actor's clan. LEADER only.
func (s *ClanService) Disband(actorID uuid.UUID) error {
	s.mu.Lock()
	clan, actor, err := s.actorClanLocked(actorID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := requireLeader(actor); err != nil {
		s.mu.Unlock()
		return err
	}
	display, err := s.deleteClanLocked(clan.Key())
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.broadcaster.ClanDisbanded(display)
	return nil
}

// deleteClanLocked drops the clan, its actor index entries, invites and
// cascading relations. Caller holds mu exclusively.
func (s *ClanService) deleteClanLocked(key string) (string, error) {
	e, ok := s.clans[key]
	if !ok {
		return "", domain.ErrClanNotFound
	}
	delete(s.clans, key)
	for id := range e.clan.Members {
		if s.members[id] == key {
			delete(s.members, id)
		}
	}

	s.inviteMu.Lock()
	for id, invited := range s.invites {
		if invited == key {
			delete(s.invites, id)
		}
	}
	s.inviteMu.Unlock()

	for otherKey, other := range s.clans {
		changed := other.clan.Allies.Remove(key)
		changed = other.clan.Enemies.Remove(key) || changed
		if _, atWar := other.clan.ActiveWars[key]; atWar {
			delete(other.clan.ActiveWars, key)
			changed = true
		}
		if changed {
			s.persister.MarkDirty(otherKey)
		}
	}

	s.persister.MarkDeleted(key)
	return e.clan.Name, nil
}

// ResetDailyKills clears daily kill counters of clans whose window expired
func (s *ClanService) ResetDailyKills() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	reset := 0
	for key, e := range s.clans {
		e.mu.Lock()
		if e.clan.RollDailyWindow(now) {
			reset++
			s.persister.MarkDirty(key)
		}
		e.mu.Unlock()
	}
	if reset > 0 {
		log.Printf("🔄 Daily kills reset for %d clans", reset)
	}
	return reset
}

// ============================================================
// registrySource
// ============================================================

func (s *ClanService) snapshotAll() map[string]*domain.Clan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.Clan, len(s.clans))
	for key, e := range s.clans {
		e.mu.Lock()
		out[key] = e.clan.Clone()
		e.mu.Unlock()
	}
	return out
}

func (s *ClanService) snapshotClan(key string) (*domain.Clan, bool) {
	var out *domain.Clan
	ok := s.viewClan(key, func(c *domain.Clan) { out = c.Clone() })
	return out, ok
}
