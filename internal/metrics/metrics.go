// Package metrics collects engine counters and reports them to Redis for
// centralized access by the operations dashboard.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// metricsKeyPrefix is the Redis key prefix for engine metrics.
	metricsKeyPrefix = "metrics:"
	// metricsTTL is how long metrics stay in Redis if not refreshed.
	metricsTTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing metrics to Redis.
	DefaultReportInterval = 30 * time.Second
)

// EngineMetrics is the snapshot written to Redis.
type EngineMetrics struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`

	// Counters (monotonically increasing since start)
	CyclesCompleted   uint64 `json:"cycles_completed"`
	RulesEvaluated    uint64 `json:"rules_evaluated"`
	RulesFired        uint64 `json:"rules_fired"`
	RulesSkipped      uint64 `json:"rules_skipped"`
	DeliverySuccesses uint64 `json:"delivery_successes"`
	DeliveryFailures  uint64 `json:"delivery_failures"`
	ProcessingErrors  uint64 `json:"processing_errors"`

	// Latency (average per cycle, in nanoseconds)
	AvgCycleLatencyNs float64 `json:"avg_cycle_latency_ns"`
}

// Collector accumulates engine counters and periodically reports them.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	cyclesCompleted   atomic.Uint64
	rulesEvaluated    atomic.Uint64
	rulesFired        atomic.Uint64
	rulesSkipped      atomic.Uint64
	deliverySuccesses atomic.Uint64
	deliveryFailures  atomic.Uint64
	processingErrors  atomic.Uint64

	totalCycleLatencyNs atomic.Uint64
	cycleLatencyCount   atomic.Uint64

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewCollector creates a metrics collector. A nil Redis client disables
// reporting but keeps the counters usable, which is what tests rely on.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the interval for writing metrics to Redis.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Start begins the periodic metrics reporting to Redis.
func (c *Collector) Start(ctx context.Context) {
	if c.redis == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.writeMetrics(context.Background()) // Final write
				return
			case <-c.stopCh:
				c.writeMetrics(context.Background()) // Final write
				return
			case <-ticker.C:
				c.writeMetrics(ctx)
			}
		}
	}()
}

// Stop stops the metrics reporting.
func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// RecordCycle records one completed evaluation cycle and its latency.
func (c *Collector) RecordCycle(latency time.Duration) {
	c.cyclesCompleted.Add(1)
	c.totalCycleLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.cycleLatencyCount.Add(1)
}

// RecordEvaluated increments the rules-evaluated counter.
func (c *Collector) RecordEvaluated() {
	c.rulesEvaluated.Add(1)
}

// RecordFired increments the rules-fired counter.
func (c *Collector) RecordFired() {
	c.rulesFired.Add(1)
}

// RecordSkipped increments the rules-skipped counter (disabled, cooldown,
// unregistered source).
func (c *Collector) RecordSkipped() {
	c.rulesSkipped.Add(1)
}

// RecordDispatch adds a dispatch invocation's delivery tallies.
func (c *Collector) RecordDispatch(successes, failures int) {
	if successes > 0 {
		c.deliverySuccesses.Add(uint64(successes))
	}
	if failures > 0 {
		c.deliveryFailures.Add(uint64(failures))
	}
}

// RecordError increments the processing errors counter.
func (c *Collector) RecordError() {
	c.processingErrors.Add(1)
}

// GetSnapshot returns current counters without writing to Redis.
func (c *Collector) GetSnapshot() *EngineMetrics {
	var avgLatency float64
	if count := c.cycleLatencyCount.Load(); count > 0 {
		avgLatency = float64(c.totalCycleLatencyNs.Load()) / float64(count)
	}

	return &EngineMetrics{
		ServiceName:       c.serviceName,
		StartedAt:         c.startedAt,
		LastUpdated:       time.Now().UTC(),
		CyclesCompleted:   c.cyclesCompleted.Load(),
		RulesEvaluated:    c.rulesEvaluated.Load(),
		RulesFired:        c.rulesFired.Load(),
		RulesSkipped:      c.rulesSkipped.Load(),
		DeliverySuccesses: c.deliverySuccesses.Load(),
		DeliveryFailures:  c.deliveryFailures.Load(),
		ProcessingErrors:  c.processingErrors.Load(),
		AvgCycleLatencyNs: avgLatency,
	}
}

// writeMetrics serializes the snapshot and writes it to Redis with a TTL.
func (c *Collector) writeMetrics(ctx context.Context) {
	snapshot := c.GetSnapshot()

	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("Failed to marshal metrics", "error", err)
		return
	}

	key := metricsKeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, metricsTTL).Err(); err != nil {
		slog.Warn("Failed to write metrics to Redis", "error", err)
		return
	}
	slog.Debug("Wrote metrics to Redis", "key", key)
}

// ConnectRedis creates and validates a Redis connection.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}
