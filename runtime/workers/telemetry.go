package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker periodically logs the process's own resource usage.
// Observation only; nothing in the delivery path depends on it.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, metricInterval: metricInterval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			cpu, err := self.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := self.MemoryPercent()
			if err != nil {
				w.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			w.log.Info("Process telemetry",
				"cpu_percent", cpu,
				"ram_percent", ram,
				"goroutines", runtime.NumGoroutine())
		}
	}
}
