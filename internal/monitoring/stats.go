package monitoring

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a point-in-time sample of the machine the API runs on.
type HostStats struct {
	UptimeSeconds     uint64    `json:"uptimeSeconds"`
	MemoryUsedPercent float64   `json:"memoryUsedPercent"`
	DatabaseBytes     int64     `json:"databaseBytes"`
	SampledAt         time.Time `json:"sampledAt"`
}

// StatSampler periodically samples host stats so request handlers can read
// the latest values without calling into the OS.
type StatSampler struct {
	databasePath string
	interval     time.Duration

	mu        sync.RWMutex
	latest    HostStats
	ok        bool
	lastAlert time.Time
}

// NewStatSampler creates a sampler. databasePath may be ":memory:", in which
// case the database size is reported as zero.
func NewStatSampler(databasePath string, interval time.Duration) *StatSampler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &StatSampler{databasePath: databasePath, interval: interval}
}

// Run starts the periodic sampling and blocks until ctx is done.
func (s *StatSampler) Run(ctx context.Context) {
	log.Info().Msg("Starting background stat sampler...")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on start
	s.Sample(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping background stat sampler.")
			return
		case <-ticker.C:
			s.Sample(ctx)
		}
	}
}

// Sample collects fresh stats. A failure keeps the previous sample.
func (s *StatSampler) Sample(ctx context.Context) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatSampler: could not read memory stats")
		return
	}
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatSampler: could not read host uptime")
		return
	}

	stats := HostStats{
		UptimeSeconds:     uptime,
		MemoryUsedPercent: vm.UsedPercent,
		DatabaseBytes:     s.databaseSize(),
		SampledAt:         time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = stats
	s.ok = true
	s.checkAndAlertForHighMemory(stats)
}

// Latest returns the most recent sample and whether one has been taken.
func (s *StatSampler) Latest() (HostStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.ok
}

// checkAndAlertForHighMemory must be called with mu held.
func (s *StatSampler) checkAndAlertForHighMemory(stats HostStats) {
	const highMemoryThreshold = 90.0
	const alertCooldown = 15 * time.Minute

	if stats.MemoryUsedPercent <= highMemoryThreshold {
		return
	}
	if !s.lastAlert.IsZero() && time.Since(s.lastAlert) < alertCooldown {
		return
	}
	log.Warn().Float64("memory_used_percent", stats.MemoryUsedPercent).Msg("High memory usage detected")
	s.lastAlert = time.Now()
}

func (s *StatSampler) databaseSize() int64 {
	if s.databasePath == "" || s.databasePath == ":memory:" {
		return 0
	}
	info, err := os.Stat(s.databasePath)
	if err != nil {
		log.Warn().Err(err).Str("path", s.databasePath).Msg("StatSampler: could not stat database file")
		return 0
	}
	return info.Size()
}
