package runledger

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/config"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/graph"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
)

// Ledger mirrors run and node state into Redis so operators can watch a run
// while it executes and inspect it afterwards. Writes degrade to logged
// warnings when Redis is unavailable; the pipeline never depends on them.
type Ledger struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects a ledger using the given settings.
func New(cfg config.RedisConfig) *Ledger {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}

	// TLS is required by hosted providers such as Upstash.
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Ledger{client: redis.NewClient(opts), ttl: cfg.StateTTL}
}

// Close releases the underlying client.
func (l *Ledger) Close() error {
	return l.client.Close()
}

func runKey(runDate time.Time) string {
	return "run:" + runDate.Format(models.DateLayout)
}

func nodeKey(runDate time.Time, node string) string {
	return runKey(runDate) + ":node:" + node
}

func lockKey(runDate time.Time) string {
	return runKey(runDate) + ":lock"
}

// StartRun marks the run as running and stamps its start time. Each start
// gets a fresh run_id so re-triggers of the same date are distinguishable
// in the record.
func (l *Ledger) StartRun(ctx context.Context, runDate time.Time) {
	l.hset(ctx, runKey(runDate), map[string]any{
		"run_id":     uuid.NewString(),
		"status":     string(graph.StatusRunning),
		"started_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// FinishRun records the run's terminal state from the executor's report.
func (l *Ledger) FinishRun(ctx context.Context, runDate time.Time, report *graph.RunReport) {
	fields := map[string]any{
		"status":      string(graph.StatusSucceeded),
		"finished_at": time.Now().UTC().Format(time.RFC3339),
	}
	if !report.Succeeded() {
		fields["status"] = string(graph.StatusFailed)
		fields["failed_node"] = report.Failed
		if report.Err != nil {
			fields["error"] = report.Err.Error()
		}
	}
	l.hset(ctx, runKey(runDate), fields)
}

// RecordNode mirrors one node report into the ledger. The executor calls it
// from concurrent node goroutines.
func (l *Ledger) RecordNode(ctx context.Context, runDate time.Time, nr graph.NodeReport) {
	fields := map[string]any{
		"status":      string(nr.Status),
		"attempts":    nr.Attempts,
		"duration_ms": nr.Duration.Milliseconds(),
	}
	if nr.Err != nil {
		fields["error"] = nr.Err.Error()
	}
	l.hset(ctx, nodeKey(runDate, nr.Name), fields)
}

// Observer adapts the ledger into a graph observer for one run date. It
// uses its own short deadline so node state still lands when the run's
// context has been cancelled.
func (l *Ledger) Observer(runDate time.Time) graph.Observer {
	return func(nr graph.NodeReport) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		l.RecordNode(ctx, runDate, nr)
	}
}

// hset writes hash fields and refreshes the key's TTL. Failures downgrade
// to warnings: losing ledger state must not fail the pipeline.
func (l *Ledger) hset(ctx context.Context, key string, fields map[string]any) {
	if err := l.client.HSet(ctx, key, fields).Err(); err != nil {
		log.Printf("Warning: run ledger write to %s failed: %v", key, err)
		return
	}
	if err := l.client.Expire(ctx, key, l.ttl).Err(); err != nil {
		log.Printf("Warning: run ledger expire on %s failed: %v", key, err)
	}
}

// NodeState is the recorded outcome of one node.
type NodeState struct {
	Status     string `json:"status"`
	Attempts   int    `json:"attempts,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunState is the operator-facing view of one run.
type RunState struct {
	Date       string               `json:"date"`
	RunID      string               `json:"run_id,omitempty"`
	Status     string               `json:"status"`
	StartedAt  string               `json:"started_at,omitempty"`
	FinishedAt string               `json:"finished_at,omitempty"`
	FailedNode string               `json:"failed_node,omitempty"`
	Error      string               `json:"error,omitempty"`
	Nodes      map[string]NodeState `json:"nodes,omitempty"`
}

// GetRun loads a run's recorded state along with the named nodes. A date
// with no record returns nil.
func (l *Ledger) GetRun(ctx context.Context, runDate time.Time, nodes []string) (*RunState, error) {
	rec, err := l.client.HGetAll(ctx, runKey(runDate)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}
	if len(rec) == 0 {
		return nil, nil
	}

	state := &RunState{
		Date:       runDate.Format(models.DateLayout),
		RunID:      rec["run_id"],
		Status:     rec["status"],
		StartedAt:  rec["started_at"],
		FinishedAt: rec["finished_at"],
		FailedNode: rec["failed_node"],
		Error:      rec["error"],
		Nodes:      make(map[string]NodeState, len(nodes)),
	}

	for _, name := range nodes {
		nrec, err := l.client.HGetAll(ctx, nodeKey(runDate, name)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read node state for %s: %w", name, err)
		}
		if len(nrec) == 0 {
			continue
		}
		attempts, _ := strconv.Atoi(nrec["attempts"])
		duration, _ := strconv.ParseInt(nrec["duration_ms"], 10, 64)
		state.Nodes[name] = NodeState{
			Status:     nrec["status"],
			Attempts:   attempts,
			DurationMS: duration,
			Error:      nrec["error"],
		}
	}

	return state, nil
}

// AcquireRunLock takes the single-flight lock for a run date so two runners
// cannot process the same day at once. It reports false when another
// runner already holds the lock.
func (l *Ledger) AcquireRunLock(ctx context.Context, runDate time.Time, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(runDate), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// ReleaseRunLock frees the run date's lock.
func (l *Ledger) ReleaseRunLock(ctx context.Context, runDate time.Time) {
	if err := l.client.Del(ctx, lockKey(runDate)).Err(); err != nil {
		log.Printf("Warning: failed to release run lock: %v", err)
	}
}

// HealthCheck verifies the ledger connection.
func (l *Ledger) HealthCheck(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
