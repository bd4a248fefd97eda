package logger

import (
	"sync"
	"time"
)

// PassTracker reports progress of the matching cascade: one update per
// completed pass, with running totals of matches and remainder sizes.
// It is safe for use from a single goroutine per pipeline run; the
// mutex guards against callers that poll stats concurrently.
type PassTracker struct {
	mu sync.Mutex

	logger     Logger
	startTime  time.Time
	totalPasses int

	completedPasses   int
	totalMatches      int
	lastPassLabel     string
	lastPassMatches   int
	remainingInvoices int
	remainingEntries  int
}

// NewPassTracker creates a tracker for a pipeline of totalPasses passes.
func NewPassTracker(logger Logger, totalPasses int) *PassTracker {
	return &PassTracker{
		logger:      logger.WithComponent("pipeline_progress"),
		startTime:   time.Now(),
		totalPasses: totalPasses,
	}
}

// PassCompleted records the outcome of one pass and logs it.
func (p *PassTracker) PassCompleted(label string, matches, remainingInvoices, remainingMovements int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completedPasses++
	p.totalMatches += matches
	p.lastPassLabel = label
	p.lastPassMatches = matches
	p.remainingInvoices = remainingInvoices
	p.remainingEntries = remainingMovements

	p.logger.WithFields(Fields{
		"pass":                label,
		"pass_matches":        matches,
		"total_matches":       p.totalMatches,
		"remaining_invoices":  remainingInvoices,
		"remaining_movements": remainingMovements,
		"passes_completed":    p.completedPasses,
		"passes_total":        p.totalPasses,
		"elapsed":             time.Since(p.startTime).Round(time.Millisecond),
	}).Info("Pass completed")
}

// Stats is a snapshot of tracker state.
type Stats struct {
	CompletedPasses   int
	TotalPasses       int
	TotalMatches      int
	LastPassLabel     string
	LastPassMatches   int
	RemainingInvoices int
	RemainingEntries  int
	Elapsed           time.Duration
}

// GetStats returns a snapshot of current progress.
func (p *PassTracker) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		CompletedPasses:   p.completedPasses,
		TotalPasses:       p.totalPasses,
		TotalMatches:      p.totalMatches,
		LastPassLabel:     p.lastPassLabel,
		LastPassMatches:   p.lastPassMatches,
		RemainingInvoices: p.remainingInvoices,
		RemainingEntries:  p.remainingEntries,
		Elapsed:           time.Since(p.startTime),
	}
}
