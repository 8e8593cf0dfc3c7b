package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/4rubka/ClanMaster/internal/adapters/persistence/repositories"
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStorage is an in-memory ClanStorage that records every call
type memStorage struct {
	mu          sync.Mutex
	incremental bool
	clans       map[string]*domain.Clan
	loadErr     error
	saveErr     error
	saveAlls    int
	saved       []string
	deleted     []string
}

var _ repositories.ClanStorage = (*memStorage)(nil)

func newMemStorage(incremental bool) *memStorage {
	return &memStorage{incremental: incremental, clans: make(map[string]*domain.Clan)}
}

func (m *memStorage) LoadAll(ctx context.Context) (map[string]*domain.Clan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]*domain.Clan, len(m.clans))
	for k, c := range m.clans {
		out[k] = c.Clone()
	}
	return out, nil
}

func (m *memStorage) SaveAll(ctx context.Context, clans map[string]*domain.Clan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveAlls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.clans = make(map[string]*domain.Clan, len(clans))
	for k, c := range clans {
		m.clans[k] = c.Clone()
	}
	return nil
}

func (m *memStorage) SaveClan(ctx context.Context, clan *domain.Clan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, clan.Key())
	m.clans[clan.Key()] = clan.Clone()
	return nil
}

func (m *memStorage) DeleteClan(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.deleted = append(m.deleted, name)
	delete(m.clans, name)
	return nil
}

func (m *memStorage) FindByActor(actorID uuid.UUID, clans map[string]*domain.Clan) *domain.Clan {
	return repositories.FindByActor(actorID, clans)
}

func (m *memStorage) Incremental() bool { return m.incremental }

func (m *memStorage) Close() error { return nil }

func (m *memStorage) stored(key string) (*domain.Clan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clans[key]
	return c, ok
}

func (m *memStorage) setSaveErr(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// recordingBroadcaster keeps every event it receives
type recordingBroadcaster struct {
	mu        sync.Mutex
	levelUps  []levelEvent
	declared  [][2]string
	ended     [][3]string
	disbanded []string
}

func (b *recordingBroadcaster) LevelUp(clanName string, level int, bonus domain.Bonus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levelUps = append(b.levelUps, levelEvent{clan: clanName, level: level, bonus: bonus})
}

func (b *recordingBroadcaster) WarDeclared(clanName, enemyName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.declared = append(b.declared, [2]string{clanName, enemyName})
}

func (b *recordingBroadcaster) WarEnded(clanName, enemyName, winner string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ended = append(b.ended, [3]string{clanName, enemyName, winner})
}

func (b *recordingBroadcaster) ClanDisbanded(clanName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disbanded = append(b.disbanded, clanName)
}

// MockFunds is a testify mock of FundsProvider
type MockFunds struct {
	mock.Mock
}

func (m *MockFunds) Has(actorID uuid.UUID, amount float64) bool {
	args := m.Called(actorID, amount)
	return args.Bool(0)
}

func (m *MockFunds) Withdraw(actorID uuid.UUID, amount float64) error {
	args := m.Called(actorID, amount)
	return args.Error(0)
}

func (m *MockFunds) Deposit(actorID uuid.UUID, amount float64) error {
	args := m.Called(actorID, amount)
	return args.Error(0)
}

var errBackend = errors.New("backend unavailable")

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *ClanService
	storage *memStorage
	events  *recordingBroadcaster
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	opts    ClanOptions
	funds   FundsProvider
	storage *memStorage
}

func withOptions(fn func(o *ClanOptions)) fixtureOption {
	return func(c *fixtureConfig) { fn(&c.opts) }
}

func withFunds(funds FundsProvider) fixtureOption {
	return func(c *fixtureConfig) { c.funds = funds }
}

func withStorage(storage *memStorage) fixtureOption {
	return func(c *fixtureConfig) { c.storage = storage }
}

// newFixture builds a registry that is not started; tests flush explicitly
func newFixture(t *testing.T, options ...fixtureOption) *fixture {
	t.Helper()
	cfg := &fixtureConfig{opts: DefaultClanOptions(), storage: newMemStorage(true)}
	for _, o := range options {
		o(cfg)
	}

	events := &recordingBroadcaster{}
	bonuses := NewBonusService(map[int]domain.Bonus{
		2: {Coins: 500, Privilege: "clan.home"},
		3: {Coins: 1000},
	})
	svc := NewClanService(context.Background(), cfg.storage, bonuses, cfg.opts, cfg.funds, events, time.Second, 1)
	svc.persister.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return &fixture{svc: svc, storage: cfg.storage, events: events}
}

// create makes a clan led by a fresh actor and returns the leader
func (f *fixture) create(t *testing.T, name string) uuid.UUID {
	t.Helper()
	leader := uuid.New()
	_, err := f.svc.CreateClan(name, leader)
	require.NoError(t, err)
	return leader
}

// join adds a fresh MEMBER to the clan and returns it
func (f *fixture) join(t *testing.T, name string) uuid.UUID {
	t.Helper()
	actor := uuid.New()
	require.NoError(t, f.svc.AddMember(name, actor))
	return actor
}

func (f *fixture) clan(t *testing.T, name string) *domain.Clan {
	t.Helper()
	c, ok := f.svc.GetClanByName(name)
	require.True(t, ok, "clan %s should exist", name)
	return c
}
