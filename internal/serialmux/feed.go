package serialmux

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/banshee-data/deadreckon/internal/imu"
	"github.com/banshee-data/deadreckon/internal/monitoring"
)

// RecordHandler receives each decoded IMU line.
type RecordHandler func(imu.Record) error

// FeedStats counts what Feed has seen. Safe to read while Feed runs.
type FeedStats struct {
	Lines         atomic.Int64
	Records       atomic.Int64
	ParseErrors   atomic.Int64
	HandlerErrors atomic.Int64
}

// Feed subscribes to mux and decodes every line with imu.ParseLine until ctx
// is done or the mux closes the subscription. Bad lines and handler errors
// are logged and counted, never fatal.
func Feed(ctx context.Context, mux SerialMuxInterface, handle RecordHandler, stats *FeedStats) error {
	if stats == nil {
		stats = &FeedStats{}
	}
	id, lines := mux.Subscribe()
	defer mux.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			stats.Lines.Add(1)
			rec, err := imu.ParseLine(line)
			if errors.Is(err, imu.ErrSkipLine) {
				continue
			}
			if err != nil {
				stats.ParseErrors.Add(1)
				monitoring.Debugf("serialmux: dropping line %q: %v", line, err)
				continue
			}
			stats.Records.Add(1)
			if err := handle(rec); err != nil {
				if stats.HandlerErrors.Add(1) == 1 {
					monitoring.Logf("serialmux: record handler error: %v", err)
				}
			}
		}
	}
}
