package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/4rubka/ClanMaster/internal/adapters/persistence/repositories"
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"
)

// ErrStorageNotLoaded is returned when a whole-snapshot write would replace
// storage that was never loaded into the registry
var ErrStorageNotLoaded = errors.New("initial load failed, refusing to replace storage")

// registrySource gives the persister consistent copies of registry state
type registrySource interface {
	snapshotAll() map[string]*domain.Clan
	snapshotClan(key string) (*domain.Clan, bool)
}

// Persister is the single background writer between the registry and storage.
// Mutations only mark keys; the loop goroutine drains them on every signal.
type Persister struct {
	storage repositories.ClanStorage
	source  registrySource
	timeout time.Duration
	retries uint

	// newBackOff builds the retry schedule for one backend call
	newBackOff func() backoff.BackOff

	mu         sync.Mutex
	dirty      map[string]struct{}
	deleted    map[string]struct{}
	loadFailed bool

	// writeMu serializes backend writes; group folds concurrent identical requests
	writeMu sync.Mutex
	group   singleflight.Group

	signal   chan struct{}
	stopChan chan struct{}
	done     chan struct{}
	running  atomic.Bool
	startOne sync.Once
	stopOnce sync.Once
}

// NewPersister creates a persister. timeout bounds each backend call including retries.
func NewPersister(storage repositories.ClanStorage, source registrySource, timeout time.Duration, retries uint) *Persister {
	if retries == 0 {
		retries = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Persister{
		storage:    storage,
		source:     source,
		timeout:    timeout,
		retries:    retries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		dirty:      make(map[string]struct{}),
		deleted:    make(map[string]struct{}),
		signal:     make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the writer goroutine
func (p *Persister) Start() {
	p.startOne.Do(func() {
		p.running.Store(true)
		log.Println("🚀 Persister started")
		go p.run()
	})
}

func (p *Persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.signal:
			if err := p.Flush(context.Background()); err != nil {
				log.Printf("❌ Persist error: %v", err)
			}
		case <-p.stopChan:
			return
		}
	}
}

// Stop ends the writer goroutine and writes the full registry one last time
func (p *Persister) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopChan) })
	if p.running.Load() {
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := p.SaveAll(ctx)
	log.Println("🛑 Persister stopped")
	return err
}

// MarkDirty queues key for an upsert
func (p *Persister) MarkDirty(key string) {
	p.mu.Lock()
	p.dirty[key] = struct{}{}
	delete(p.deleted, key)
	p.mu.Unlock()
	p.notify()
}

// MarkDeleted queues key for removal
func (p *Persister) MarkDeleted(key string) {
	p.mu.Lock()
	p.deleted[key] = struct{}{}
	delete(p.dirty, key)
	p.mu.Unlock()
	p.notify()
}

// Pending reports how many keys wait for the next flush
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dirty) + len(p.deleted)
}

func (p *Persister) setLoadFailed(v bool) {
	p.mu.Lock()
	p.loadFailed = v
	p.mu.Unlock()
}

func (p *Persister) notify() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Flush writes pending changes. Incremental backends get per-clan calls,
// whole-snapshot backends get one SaveAll.
func (p *Persister) Flush(ctx context.Context) error {
	_, err, _ := p.group.Do("flush", func() (interface{}, error) {
		return nil, p.flush(ctx)
	})
	return err
}

// SaveAll writes the whole registry regardless of pending marks
func (p *Persister) SaveAll(ctx context.Context) error {
	_, err, _ := p.group.Do("save", func() (interface{}, error) {
		p.writeMu.Lock()
		defer p.writeMu.Unlock()
		return nil, p.saveAllLocked(ctx)
	})
	return err
}

func (p *Persister) flush(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if !p.storage.Incremental() {
		if p.Pending() == 0 {
			return nil
		}
		return p.saveAllLocked(ctx)
	}

	dirty, deleted := p.drain()
	return p.writeEachLocked(ctx, dirty, deleted)
}

// writeEachLocked deletes and upserts clan by clan, re-queueing what fails.
// Caller holds writeMu.
func (p *Persister) writeEachLocked(ctx context.Context, dirty, deleted map[string]struct{}) error {
	var errs []error
	for key := range deleted {
		err := p.retry(ctx, func(ctx context.Context) error {
			return p.storage.DeleteClan(ctx, key)
		})
		if err != nil {
			p.restore(nil, map[string]struct{}{key: {}})
			errs = append(errs, fmt.Errorf("delete clan %s: %w", key, err))
		}
	}
	for key := range dirty {
		clan, ok := p.source.snapshotClan(key)
		if !ok {
			continue
		}
		err := p.retry(ctx, func(ctx context.Context) error {
			return p.storage.SaveClan(ctx, clan)
		})
		if err != nil {
			p.restore(map[string]struct{}{key: {}}, nil)
			errs = append(errs, fmt.Errorf("save clan %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Persister) saveAllLocked(ctx context.Context) error {
	dirty, deleted := p.drain()
	clans := p.source.snapshotAll()

	p.mu.Lock()
	loadFailed := p.loadFailed
	p.mu.Unlock()
	if loadFailed {
		return p.saveUnloadedLocked(ctx, clans, dirty, deleted)
	}

	err := p.retry(ctx, func(ctx context.Context) error {
		return p.storage.SaveAll(ctx, clans)
	})
	if err != nil {
		p.restore(dirty, deleted)
		return fmt.Errorf("save all clans: %w", err)
	}
	p.setLoadFailed(false)
	log.Printf("💾 Saved %d clans", len(clans))
	return nil
}

// saveUnloadedLocked writes the registry while storage still holds rows the
// registry never saw. Incremental backends get per-clan upserts so those rows
// survive; a whole-snapshot backend is left untouched.
func (p *Persister) saveUnloadedLocked(ctx context.Context, clans map[string]*domain.Clan, dirty, deleted map[string]struct{}) error {
	if p.storage.Incremental() {
		for key := range clans {
			dirty[key] = struct{}{}
		}
		if err := p.writeEachLocked(ctx, dirty, deleted); err != nil {
			return err
		}
		log.Printf("💾 Saved %d clans one by one: initial load failed", len(clans))
		return nil
	}

	p.restore(dirty, deleted)
	if len(clans) == 0 {
		log.Println("⚠️ Skipping save of empty registry: initial load failed")
		return nil
	}
	log.Printf("❌ Not replacing storage with %d clans: initial load failed", len(clans))
	return ErrStorageNotLoaded
}

func (p *Persister) drain() (dirty, deleted map[string]struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dirty, deleted = p.dirty, p.deleted
	p.dirty = make(map[string]struct{})
	p.deleted = make(map[string]struct{})
	return dirty, deleted
}

// restore re-queues keys after a failed write unless newer marks replaced them
func (p *Persister) restore(dirty, deleted map[string]struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range dirty {
		if _, gone := p.deleted[key]; !gone {
			p.dirty[key] = struct{}{}
		}
	}
	for key := range deleted {
		if _, back := p.dirty[key]; !back {
			p.deleted[key] = struct{}{}
		}
	}
}

func (p *Persister) retry(ctx context.Context, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op(ctx)
	}, backoff.WithBackOff(p.newBackOff()), backoff.WithMaxTries(p.retries))
	return err
}
