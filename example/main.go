// Command example demonstrates wiring the series manager to the SQLite
// store with a reminder hook.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/karstenv/seriescal/recurrence"
	"github.com/karstenv/seriescal/series"
	"github.com/karstenv/seriescal/storage"
	"github.com/karstenv/seriescal/storage/sqlite"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	store, err := sqlite.Open("seriescal.db", logger)
	if err != nil {
		logger.Error("opening store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	mgr, err := series.New(store, &series.Options{
		Logger: logger,
		OnInstanceCreated: func(ctx context.Context, tx storage.Tx, inst *storage.Occurrence) error {
			// A real deployment writes a call-reminder row here, derived
			// from inst.Start and inst.Snapshot.ReminderWeeksPrior, using
			// the same tx so both commit together.
			logger.Info("reminder scheduled",
				"instance_id", inst.ID,
				"due", inst.Start.AddDate(0, 0, -7*inst.Snapshot.ReminderWeeksPrior))
			return nil
		},
	})
	if err != nil {
		logger.Error("creating manager", "error", err)
		os.Exit(1)
	}

	// A forever series: annual inspection, every year on the same ISO
	// week and weekday.
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	parent := &storage.Occurrence{
		CalendarID: "shop-floor",
		Start:      start,
		End:        start.Add(2 * time.Hour),
		Snapshot: storage.Snapshot{
			CustomerName:       "Hollis Freight",
			CustomerPhone:      "555-0164",
			TrailerInfo:        "53ft dry van",
			ReminderWeeksPrior: 2,
		},
		Rule: &recurrence.Rule{Freq: recurrence.FreqYearly, Interval: 1, Never: true},
	}
	if _, err := mgr.CreateSeries(ctx, parent); err != nil {
		logger.Error("creating series", "error", err)
		os.Exit(1)
	}
	logger.Info("series created", "summary", parent.Rule.Summary())

	// Show the next decade and materialize the first upcoming slot.
	windowStart, _ := recurrence.DefaultWindow(time.Now())
	occs, err := mgr.ExpandWindow(ctx, parent.ID, windowStart, windowStart.AddDate(10, 0, 0), 0)
	if err != nil {
		logger.Error("expanding window", "error", err)
		os.Exit(1)
	}
	for _, occ := range occs {
		logger.Info("virtual occurrence", "ordinal", occ.Ordinal, "start", occ.Start)
	}

	if len(occs) > 1 {
		inst, created, err := mgr.Materialize(ctx, parent.ID, occs[1].OriginalAnchor)
		if err != nil {
			logger.Error("materializing", "error", err)
			os.Exit(1)
		}
		logger.Info("materialized", "instance_id", inst.ID, "created", created)
	}
}
