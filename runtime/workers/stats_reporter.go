package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"ohtalk/contract"

	"github.com/shirou/gopsutil/process"
)

// Stats is one sample of the server's own footprint.
type Stats struct {
	Online int
	RSSMb  uint64
	CPU    float64
	Uptime time.Duration
}

// StatsReporter logs how many users are online and what the process costs,
// once per interval and once more on shutdown.
type StatsReporter struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
	started  time.Time
}

func NewStatsReporter(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *StatsReporter {
	return &StatsReporter{log: log, registry: registry, interval: interval, started: time.Now()}
}

func (w *StatsReporter) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report(p)
			return nil
		case <-ticker.C:
			w.report(p)
		}
	}
}

// Sample reads the current figures for p.
func (w *StatsReporter) Sample(p *process.Process) (Stats, error) {
	stats := Stats{Online: w.registry.Count(), Uptime: time.Since(w.started).Round(time.Second)}
	mem, err := p.MemoryInfo()
	if err != nil {
		return stats, err
	}
	stats.RSSMb = mem.RSS / 1024 / 1024
	if stats.CPU, err = p.CPUPercent(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (w *StatsReporter) report(p *process.Process) {
	stats, err := w.Sample(p)
	if err != nil {
		w.log.Debug("Failed to collect process stats", "error", err)
	}
	w.log.Info("Server stats",
		"online", stats.Online,
		"rss_mb", stats.RSSMb,
		"cpu_percent", stats.CPU,
		"uptime", stats.Uptime.String(),
	)
}
