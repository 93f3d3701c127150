/*
scheduler.go - Expiry watcher

PURPOSE:
  Periodically scans the ledger for in-stock batches that have expired or
  will expire within a configured window, and logs one warning per batch so
  operators can pull or discount them.

DESIGN:
  - robfig/cron drives the schedule (standard 5-field spec)
  - Each run is one ExpiringWindow read; nothing is mutated
  - The last report is kept in memory for GET /api/alerts/expiry

CONFIGURATION:
  - Spec: cron expression (EXPIRY_ALERT_CRON), empty disables scheduling
  - Days: look-ahead window (EXPIRY_ALERT_DAYS)

USAGE:
  watcher := NewExpiryWatcher(l, 30, "0 7 * * *", log)
  if err := watcher.Start(); err != nil { ... }
  // ... later
  watcher.Stop()

SEE ALSO:
  - handlers_stock.go: GetExpiryReport, RunExpiryCheck
  - ledger/ledger.go: ExpiringWindow
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/warp/pharma-stock/ledger"
)

// ExpiryReport is the outcome of one watcher run.
type ExpiryReport struct {
	ID       string              `json:"id"`
	RanAt    time.Time           `json:"ran_at"`
	Days     int                 `json:"days"`
	Expired  []ledger.StockBatch `json:"expired"`
	Expiring []ledger.StockBatch `json:"expiring"`
}

// ExpiryWatcher runs the expiry scan on a cron schedule.
type ExpiryWatcher struct {
	Ledger *ledger.Ledger
	Days   int
	Spec   string

	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	last    *ExpiryReport
	started bool
}

func NewExpiryWatcher(l *ledger.Ledger, days int, spec string, log zerolog.Logger) *ExpiryWatcher {
	return &ExpiryWatcher{
		Ledger: l,
		Days:   days,
		Spec:   spec,
		cron:   cron.New(),
		log:    log.With().Str("component", "expiry_watcher").Logger(),
	}
}

// Start schedules the scan. An empty spec leaves the watcher idle; RunOnce
// still works.
func (ew *ExpiryWatcher) Start() error {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	if ew.Spec == "" {
		ew.log.Info().Msg("disabled, not starting")
		return nil
	}
	if ew.started {
		return nil
	}
	if _, err := ew.cron.AddFunc(ew.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		ew.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid expiry schedule %q: %w", ew.Spec, err)
	}
	ew.cron.Start()
	ew.started = true
	ew.log.Info().Str("spec", ew.Spec).Int("days", ew.Days).Msg("started")
	return nil
}

// Stop halts scheduling and waits for a running scan to finish.
func (ew *ExpiryWatcher) Stop() {
	ew.mu.Lock()
	if !ew.started {
		ew.mu.Unlock()
		return
	}
	ew.started = false
	c := ew.cron
	ew.cron = cron.New()
	ew.mu.Unlock()

	<-c.Stop().Done()
	ew.log.Info().Msg("stopped")
}

// RunOnce performs one scan, logs it and records it as the last report.
func (ew *ExpiryWatcher) RunOnce(ctx context.Context) ExpiryReport {
	window, err := ew.Ledger.ExpiringWindow(ctx, ew.Days)
	if err != nil {
		ew.log.Error().Err(err).Msg("expiry scan failed")
		window.Now = ew.Ledger.Now()
	}
	report := ExpiryReport{
		ID:       uuid.NewString(),
		RanAt:    window.Now,
		Days:     ew.Days,
		Expired:  []ledger.StockBatch{},
		Expiring: []ledger.StockBatch{},
	}
	for _, b := range window.Batches {
		if b.ExpiryDate.After(window.Now) {
			report.Expiring = append(report.Expiring, b)
		} else {
			report.Expired = append(report.Expired, b)
		}
	}

	for _, b := range report.Expired {
		ew.log.Warn().
			Uint32("batch_id", uint32(b.ID)).
			Str("medicine", b.MedicineName).
			Uint32("warehouse_id", uint32(b.WarehouseID)).
			Uint32("quantity", b.Quantity).
			Time("expiry_date", b.ExpiryDate).
			Msg("batch expired")
	}
	for _, b := range report.Expiring {
		ew.log.Warn().
			Uint32("batch_id", uint32(b.ID)).
			Str("medicine", b.MedicineName).
			Uint32("warehouse_id", uint32(b.WarehouseID)).
			Uint32("quantity", b.Quantity).
			Time("expiry_date", b.ExpiryDate).
			Msg("batch expiring soon")
	}
	ew.log.Info().
		Str("report_id", report.ID).
		Int("expired", len(report.Expired)).
		Int("expiring", len(report.Expiring)).
		Msg("expiry scan complete")

	ew.mu.Lock()
	ew.last = &report
	ew.mu.Unlock()
	return report
}

// Last returns the most recent report, if any.
func (ew *ExpiryWatcher) Last() (ExpiryReport, bool) {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	if ew.last == nil {
		return ExpiryReport{}, false
	}
	return *ew.last, true
}
