// internal/app/system/workers/boardsweeper.go
package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops boards that have been idle longer than a threshold.
// *board.Registry satisfies it.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// BoardSweeper is a background worker that evicts idle boards.
type BoardSweeper struct {
	boards   Sweeper
	log      *zap.Logger
	interval time.Duration
	idle     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBoardSweeper creates a new board sweeper.
//
// Parameters:
//   - boards: the board registry
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
//   - idle: how long a board must go unused before it is dropped (e.g., 30 minutes)
func NewBoardSweeper(boards Sweeper, logger *zap.Logger, interval, idle time.Duration) *BoardSweeper {
	return &BoardSweeper{
		boards:   boards,
		log:      logger,
		interval: interval,
		idle:     idle,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *BoardSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("board sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("idle_ttl", w.idle))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *BoardSweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("board sweeper stopped")
}

func (w *BoardSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *BoardSweeper) sweep() {
	if n := w.boards.Sweep(w.idle); n > 0 {
		w.log.Info("dropped idle boards", zap.Int("count", n))
	}
}
