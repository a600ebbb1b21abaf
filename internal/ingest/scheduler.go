package ingest

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"
)

// Scheduler runs periodic syncs on a cron schedule with a Redis lock so
// only one instance ingests at a time.
type Scheduler struct {
	Syncer   *Syncer
	Rdb      *redis.Client
	Schedule string
	Stop     chan struct{}
	Logger   *log.Logger

	lastRun time.Time
}

// Start launches the scheduler loop.
func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	if !s.due() {
		return
	}
	ctx := context.Background()
	if s.Rdb != nil {
		// distributed lock to avoid duplicate syncs
		ok, _ := s.Rdb.SetNX(ctx, "sync:lock", "1", 5*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, "sync:lock")
	}
	s.lastRun = time.Now()
	if _, err := s.Syncer.Sync(ctx); err != nil {
		s.Logger.Printf("scheduled sync failed: %v", err)
	}
}

// due determines if a sync should run now based on the cron spec and last
// run time. Supports "@daily", "@hourly" and 5-field cron expressions.
func (s *Scheduler) due() bool {
	now := time.Now()
	switch s.Schedule {
	case "":
		return false
	case "@daily":
		return s.lastRun.IsZero() || now.Sub(s.lastRun) >= 24*time.Hour
	case "@hourly":
		return s.lastRun.IsZero() || now.Sub(s.lastRun) >= time.Hour
	default:
		expr, err := cronexpr.Parse(s.Schedule)
		if err != nil {
			// invalid spec behaves like @daily
			return s.lastRun.IsZero() || now.Sub(s.lastRun) >= 24*time.Hour
		}
		if s.lastRun.IsZero() {
			return true
		}
		return !expr.Next(s.lastRun).After(now)
	}
}
