// Package timing records how long the phases of a bulk operation take.
package timing

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Phase records the duration of one named phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks consecutive or overlapping phases. Finished phases are logged
// at INFO level when a logger is set.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
	log    *slog.Logger
	now    func() time.Time
}

// NewTimer creates an empty Timer. A nil logger disables phase logging.
func NewTimer(log *slog.Logger) *Timer {
	return &Timer{
		phases: make([]Phase, 0, 8),
		log:    log,
		now:    time.Now,
	}
}

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: t.now()})
	return len(t.phases) - 1
}

// End finishes the phase with the given index and returns its duration.
// Unknown indices are ignored.
func (t *Timer) End(idx int, note string) time.Duration {
	t.mu.Lock()
	if idx < 0 || idx >= len(t.phases) {
		t.mu.Unlock()
		return 0
	}
	p := &t.phases[idx]
	p.Dur = t.now().Sub(p.Start)
	p.Note = note
	name, dur := p.Name, p.Dur
	t.mu.Unlock()

	if t.log != nil {
		attrs := []any{"phase", name, "ms", durationToMillis(dur)}
		if note != "" {
			attrs = append(attrs, "note", note)
		}
		t.log.Info("phase finished", attrs...)
	}
	return dur
}

// PhaseReport is the serialisable form of a finished phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates all phases of a timer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report returns every phase in start order plus the summed duration.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseReport, len(t.phases)),
	}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

// Summary renders the report as an aligned text table.
func (t *Timer) Summary() string {
	report := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&b, "  %-20s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-20s %9.2f ms\n", "total", report.TotalMS)
	return b.String()
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
