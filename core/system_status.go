package core

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	statusOK          = "ok"
	statusDegraded    = "degraded"
	statusUnavailable = "unavailable"
)

// SystemStatus is the health report served on /healthz.
type SystemStatus struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Redis    string `json:"redis,omitempty"`
	Memory   struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker probes the stores every login depends on.
type HealthChecker struct {
	db        pinger
	redis     redis.Cmdable
	startedAt time.Time
}

// NewHealthChecker probes db when it can be pinged; a nil redis is skipped.
func NewHealthChecker(db any, rdb redis.Cmdable) *HealthChecker {
	p, _ := db.(pinger)
	return &HealthChecker{db: p, redis: rdb, startedAt: time.Now()}
}

// CollectSystemStatus pings each store with a short deadline.
// Any store that does not answer marks the whole report degraded.
func (h *HealthChecker) CollectSystemStatus(ctx context.Context) SystemStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := SystemStatus{Status: statusOK}
	if h.db != nil {
		st.Database = statusOK
		if err := h.db.Ping(ctx); err != nil {
			st.Database = statusUnavailable
			st.Status = statusDegraded
		}
	}
	if h.redis != nil {
		st.Redis = statusOK
		if err := h.redis.Ping(ctx).Err(); err != nil {
			st.Redis = statusUnavailable
			st.Status = statusDegraded
		}
	}

	// Memory (best-effort from /proc/meminfo)
	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !h.startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(h.startedAt).Seconds())
	}
	return st
}

// Handle answers 200 when every store is reachable and 503 otherwise.
func (h *HealthChecker) Handle(c *gin.Context) {
	st := h.CollectSystemStatus(c.Request.Context())
	code := http.StatusOK
	if st.Status != statusOK {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, st)
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
