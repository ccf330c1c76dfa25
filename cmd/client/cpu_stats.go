package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

const cpuStatsInterval = 10 * time.Second

func logCPUUsage(ctx context.Context, log zerolog.Logger, interval time.Duration) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("cpu stats unavailable")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			percent, err := proc.CPUPercent()
			if err != nil {
				log.Warn().Err(err).Msg("cpu stats failed")
				continue
			}
			mem, err := proc.MemoryInfo()
			ev := log.Info().Float64("cpu_percent", percent)
			if err == nil {
				ev = ev.Uint64("rss_bytes", mem.RSS)
			}
			ev.Msg("process usage")
		}
	}
}
