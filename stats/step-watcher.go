package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/logger"
)

const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// StepWatcher records the progress of one pipeline step, i.e. a single statement or staging load.
// While the step runs a ticker logs how long it has been going and how many rows it has written.
type StepWatcher struct {
	log        logger.Logger
	phase      string
	table      string
	rowCount   int64
	mu         sync.Mutex
	status     string
	err        error
	startTime  time.Time
	endTime    time.Time
	ticker     *time.Ticker
	tickerDone chan struct{}
	frequency  time.Duration
}

type Stats struct {
	Phase          string  `json:"phase"`
	Table          string  `json:"table"`
	StatusText     string  `json:"statusText"`
	StatusEmoji    string  `json:"statusEmoji"`
	ElapsedTimeSec float64 `json:"elapsedTimeSec"`
	RowsAffected   int64   `json:"rowsAffected"`
	Error          string  `json:"error,omitempty"`
}

func NewStepWatcher(log logger.Logger, phase string, table string) *StepWatcher {
	return &StepWatcher{
		log:        log,
		phase:      phase,
		table:      table,
		status:     StatusPending,
		tickerDone: make(chan struct{}),
		frequency:  time.Second * c.StatsLogFrequencySeconds,
	}
}

func (n *StepWatcher) StartWatching() {
	n.mu.Lock()
	n.startTime = time.Now()
	n.status = StatusRunning
	n.mu.Unlock()
	atomic.StoreInt64(&n.rowCount, 0)
	n.ticker = time.NewTicker(n.frequency)
	go func() {
		for {
			select {
			case <-n.ticker.C:
				n.log.Info("STATS: ", n.RenderStats().String())
			case <-n.tickerDone:
				return
			}
		}
	}()
}

// AddRows adds to the number of rows written so far. It is safe to call while the ticker is logging.
func (n *StepWatcher) AddRows(rows int64) {
	atomic.AddInt64(&n.rowCount, rows)
}

// StopWatching stops the ticker and records the outcome of the step.
func (n *StepWatcher) StopWatching(err error) {
	if n.ticker != nil {
		n.ticker.Stop()
		n.tickerDone <- struct{}{} // stop the goroutine that logs stats.
		n.ticker = nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.endTime = time.Now()
	n.err = err
	if err != nil {
		n.status = StatusFailed
	} else {
		n.status = StatusComplete
	}
}

// Skip marks a step that was printed instead of executed.
func (n *StepWatcher) Skip() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = StatusSkipped
}

// RenderStats gets a struct filled with stats at the point of time it is called.
func (n *StepWatcher) RenderStats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	var emoji string
	switch n.status {
	case StatusRunning:
		emoji = "\U0000231B" // hour glass
	case StatusComplete:
		emoji = "\U00002705" // green tick
	case StatusFailed:
		emoji = c.EmojiBang
	}
	var elapsed time.Duration
	switch {
	case n.startTime.IsZero():
	case n.endTime.IsZero():
		elapsed = time.Since(n.startTime)
	default:
		elapsed = n.endTime.Sub(n.startTime)
	}
	s := Stats{
		Phase:          n.phase,
		Table:          n.table,
		StatusText:     n.status,
		StatusEmoji:    emoji,
		ElapsedTimeSec: elapsed.Seconds(),
		RowsAffected:   atomic.LoadInt64(&n.rowCount),
	}
	if n.err != nil {
		s.Error = n.err.Error()
	}
	return s
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"%v %v %v %v "+
			"elapsedTimeSec=%.1f "+
			"rowsAffected=%v",
		s.Phase, s.Table, s.StatusText, s.StatusEmoji,
		s.ElapsedTimeSec,
		s.RowsAffected,
	)
}
