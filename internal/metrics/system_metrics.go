package metrics

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"
)

var (
	processCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assistant_process_cpu_percent",
		Help: "CPU usage of the assistant process",
	})
	processRSSBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assistant_process_rss_bytes",
		Help: "Resident memory of the assistant process",
	})
	goGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assistant_go_goroutines",
		Help: "Number of goroutines",
	})
)

// UpdateSystemMetrics samples the current process once.
func UpdateSystemMetrics(proc *process.Process) {
	goGoroutines.Set(float64(runtime.NumGoroutine()))
	if proc == nil {
		return
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		processCPUPercent.Set(cpu)
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		processRSSBytes.Set(float64(mem.RSS))
	}
}

// StartSystemMetricsCollection samples process metrics every interval until
// ctx is cancelled.
func StartSystemMetricsCollection(ctx context.Context, interval time.Duration) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			UpdateSystemMetrics(proc)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
