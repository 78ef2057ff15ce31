/*
scheduler.go - Fallback analytics scheduler

PURPOSE:
  Periodically rolls up sales analytics from the real-world clock when no
  game server is posting ticks to /api/info/current_time. Keeps the
  time_analytics table warm in standalone deployments.

DESIGN:
  - Runs a background goroutine with configurable tick interval
  - Each tick folds the trailing window of sales into time_analytics
  - Posted game ticks and fallback ticks share the same upsert path

CONFIGURATION:
  - TickInterval: How often to roll up (default: matches the 2h window)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewTickScheduler(store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RecordTick endpoint (game-driven ticks)
  - store/sqlite: RecordTick rollup query
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/shop-engine/store/sqlite"
)

// TickScheduler records analytics ticks on a real-time cadence.
type TickScheduler struct {
	Store        *sqlite.Store
	Log          zerolog.Logger
	TickInterval time.Duration
	Enabled      bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewTickScheduler creates a new scheduler.
func NewTickScheduler(store *sqlite.Store, log zerolog.Logger) *TickScheduler {
	return &TickScheduler{
		Store:        store,
		Log:          log,
		TickInterval: tickWindow,
		Enabled:      true,
		stop:         make(chan bool),
	}
}

// Start begins the scheduler.
func (ts *TickScheduler) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.Enabled {
		ts.Log.Info().Msg("tick scheduler disabled, not starting")
		return
	}

	ts.ticker = time.NewTicker(ts.TickInterval)
	ts.wg.Add(1)

	go ts.run()

	ts.Log.Info().Dur("interval", ts.TickInterval).Msg("tick scheduler started")
}

// Stop stops the scheduler.
func (ts *TickScheduler) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.ticker != nil {
		ts.ticker.Stop()
		close(ts.stop)
		ts.wg.Wait()
		ts.Log.Info().Msg("tick scheduler stopped")
	}
}

func (ts *TickScheduler) run() {
	defer ts.wg.Done()

	for {
		select {
		case <-ts.ticker.C:
			ts.record()
		case <-ts.stop:
			return
		}
	}
}

func (ts *TickScheduler) record() {
	now := time.Now().UTC()
	stats, err := ts.Store.RecordTick(context.Background(),
		now.Weekday().String(), now.Hour(), tickWindow)
	if err != nil {
		ts.Log.Error().Err(err).Msg("tick rollup failed")
		return
	}
	ts.Log.Debug().Str("day", stats.DayOfWeek).Int("hour", stats.HourOfDay).
		Int("sales", stats.TotalSales).Msg("tick recorded")
}
