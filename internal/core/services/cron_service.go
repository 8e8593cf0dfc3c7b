package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CronService schedules the registry's background jobs
type CronService struct {
	cron     *cron.Cron
	clans    *ClanService
	timeout  time.Duration
	autosave cron.EntryID
	daily    cron.EntryID
}

// NewCronService registers autosave every interval and the daily kill reset on
// resetSpec. Jobs never overlap with themselves.
func NewCronService(clans *ClanService, interval time.Duration, resetSpec string, verbose bool) (*CronService, error) {
	var logger cron.Logger = cron.PrintfLogger(log.Default())
	if verbose {
		logger = cron.VerbosePrintfLogger(log.Default())
	}

	s := &CronService{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		clans:   clans,
		timeout: clans.persister.timeout,
	}

	var err error
	s.autosave, err = s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.runAutosave)
	if err != nil {
		return nil, fmt.Errorf("schedule autosave: %w", err)
	}
	s.daily, err = s.cron.AddFunc(resetSpec, s.runDailyReset)
	if err != nil {
		return nil, fmt.Errorf("schedule daily reset %q: %w", resetSpec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine
func (s *CronService) Start() {
	s.cron.Start()
	log.Println("🚀 CronService started")
}

// Stop waits for running jobs to finish or ctx to expire
func (s *CronService) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Println("⚠️ CronService stop timed out with jobs still running")
	}
	log.Println("🛑 CronService stopped")
}

// NextAutosave returns when the next autosave fires
func (s *CronService) NextAutosave() time.Time {
	return s.cron.Entry(s.autosave).Next
}

func (s *CronService) runAutosave() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.clans.Save(ctx); err != nil {
		log.Printf("❌ Autosave failed: %v", err)
	}
}

func (s *CronService) runDailyReset() {
	s.clans.ResetDailyKills()
}
