package stats

import (
	"fmt"
	"io"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/sonofy/dwhpipe/logger"
)

type StatsFetcher interface {
	GetStats() []Stats
}

// RunStatsManager keeps a StepWatcher per pipeline step in the order the steps were added.
type RunStatsManager struct {
	mu       sync.Mutex
	log      logger.Logger
	watchers []*StepWatcher
}

func NewRunStats(log logger.Logger) *RunStatsManager {
	return &RunStatsManager{log: log}
}

// AddStepWatcher creates a StepWatcher for the next step.
func (t *RunStatsManager) AddStepWatcher(phase string, table string) *StepWatcher {
	t.mu.Lock()
	defer t.mu.Unlock()
	sw := NewStepWatcher(t.log, phase, table)
	t.watchers = append(t.watchers, sw)
	return sw
}

// GetStats implements interface StatsFetcher{}.
func (t *RunStatsManager) GetStats() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	statsList := make([]Stats, 0, len(t.watchers))
	for _, w := range t.watchers {
		statsList = append(statsList, w.RenderStats())
	}
	return statsList
}

// TotalRows sums the rows affected by every step of the given phase.
func (t *RunStatsManager) TotalRows(phase string) int64 {
	total := int64(0)
	for _, s := range t.GetStats() {
		if s.Phase == phase {
			total += s.RowsAffected
		}
	}
	return total
}

// LogStats writes one log line per step.
func (t *RunStatsManager) LogStats() {
	for _, s := range t.GetStats() {
		t.log.Info("STATS: ", s.String())
	}
}

// RenderTable writes a summary of every step to w.
func (t *RunStatsManager) RenderTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Phase", "Table", "Status", "Rows", "Elapsed (s)"})
	for _, s := range t.GetStats() {
		table.Append([]string{
			s.Phase,
			s.Table,
			s.StatusText,
			fmt.Sprintf("%d", s.RowsAffected),
			fmt.Sprintf("%.1f", s.ElapsedTimeSec),
		})
	}
	table.Render()
}
