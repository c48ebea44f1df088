package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"taxnexy/drip"
)

// DripWorker ticks the campaign sequencer. The sequencer itself holds
// the run lock, so a tick that overlaps the HTTP trigger just skips.
type DripWorker struct {
	seq    *drip.Sequencer
	logger *log.Logger

	interval time.Duration
}

func NewDripWorker(seq *drip.Sequencer, logger *log.Logger) *DripWorker {
	return &DripWorker{
		seq:      seq,
		logger:   logger,
		interval: 5 * time.Minute,
	}
}

func (dw *DripWorker) Start(ctx context.Context) {
	dw.logger.Println("Starting drip worker...")

	// Let the server finish booting before the first pass
	select {
	case <-time.After(10 * time.Second):
	case <-ctx.Done():
		return
	}
	dw.runOnce(ctx)

	ticker := time.NewTicker(dw.interval)
	for {
		select {
		case <-ticker.C:
			dw.runOnce(ctx)
		case <-ctx.Done():
			dw.logger.Println("Stopping drip worker...")
			ticker.Stop()
			return
		}
	}
}

func (dw *DripWorker) runOnce(ctx context.Context) {
	result, err := dw.seq.Process(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, drip.ErrRunInProgress) {
			dw.logger.Println("Sequencer run already in progress, skipping tick")
			return
		}
		dw.logger.Printf("Sequencer run failed: %v", err)
		return
	}
	if result.Processed > 0 {
		dw.logger.Printf("Sequencer run: processed=%d advanced=%d completed=%d errors=%d",
			result.Processed, result.Advanced, result.Completed, result.Errors)
	}
}
