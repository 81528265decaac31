// Package health evaluates cluster health from per-node probes. It is advisory
// and never gates writes.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
	"github.com/kailas-cloud/indexsync/internal/metrics"
)

// Status is the liveness summary derived from the verdict.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// NodeReport is the probe outcome of one node.
type NodeReport struct {
	Node    cluster.Node `json:"node"`
	Healthy bool         `json:"healthy"`
	Version string       `json:"version,omitempty"`
	State   string       `json:"state,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Report is one health evaluation. It is never persisted.
type Report struct {
	Verdict   cluster.Verdict `json:"verdict"`
	Status    Status          `json:"status"`
	Reason    string          `json:"reason"`
	Active    int             `json:"active"`
	Leaders   int             `json:"leaders"`
	Total     int             `json:"total"`
	Documents int64           `json:"documents"`
	Database  string          `json:"database,omitempty"`
	Nodes     []NodeReport    `json:"nodes"`
	Stats     map[string]any  `json:"stats,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCollections sums num_documents of names into Report.Documents.
func WithCollections(reader CollectionReader, names ...string) Option {
	return func(e *Evaluator) {
		e.reader = reader
		e.collections = names
	}
}

// WithDatabase adds the relational database to the report.
func WithDatabase(db DBPinger) Option { return func(e *Evaluator) { e.db = db } }

// Evaluator computes the tri-state cluster verdict.
type Evaluator struct {
	prober      NodeProber
	reader      CollectionReader
	collections []string
	db          DBPinger
	logger      *zap.Logger
	now         func() time.Time
}

// New creates an Evaluator.
func New(prober NodeProber, logger *zap.Logger, opts ...Option) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{prober: prober, logger: logger, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Check probes every configured node. Per-node failures are recorded on the
// node and never abort the evaluation.
func (e *Evaluator) Check(ctx context.Context) Report {
	nodes := e.prober.Nodes()
	r := Report{Total: len(nodes), Nodes: make([]NodeReport, 0, len(nodes)), CheckedAt: e.now()}

	for _, n := range nodes {
		nr := e.probe(ctx, n)
		if nr.Healthy {
			r.Active++
			if nr.State == cluster.StateName(cluster.StateLeader) {
				r.Leaders++
			}
			if r.Stats == nil {
				if stats, err := e.prober.Stats(ctx, n); err == nil {
					r.Stats = stats
				}
			}
		}
		r.Nodes = append(r.Nodes, nr)
	}

	r.Verdict, r.Reason = cluster.Evaluate(r.Active, r.Leaders, r.Total)
	r.Status = statusOf(r.Verdict)
	r.Documents = e.documents(ctx)

	if e.db != nil {
		r.Database = string(Healthy)
		if err := e.db.Ping(ctx); err != nil {
			r.Database = string(Unhealthy)
			if r.Status == Healthy {
				r.Status = Degraded
			}
		}
	}

	metrics.SetClusterHealth(string(r.Verdict))
	e.logger.Debug("Cluster health evaluated",
		zap.String("verdict", string(r.Verdict)),
		zap.Int("active", r.Active),
		zap.Int("leaders", r.Leaders),
		zap.Int("total", r.Total),
	)
	return r
}

func (e *Evaluator) probe(ctx context.Context, n cluster.Node) NodeReport {
	nr := NodeReport{Node: n}
	ok, err := e.prober.ProbeHealth(ctx, n)
	if err != nil {
		nr.Error = err.Error()
		return nr
	}
	if !ok {
		nr.Error = "health check reported not ok"
		return nr
	}
	nr.Healthy = true

	info, err := e.prober.ProbeDebug(ctx, n)
	if err != nil {
		nr.Error = err.Error()
		nr.State = cluster.StateName(0)
		return nr
	}
	nr.Version = info.Version
	nr.State = cluster.StateName(info.State)
	return nr
}

func (e *Evaluator) documents(ctx context.Context) int64 {
	if e.reader == nil {
		return 0
	}
	var total int64
	for _, name := range e.collections {
		info, err := e.reader.RetrieveCollection(ctx, name)
		if err != nil {
			e.logger.Debug("Collection count unavailable", zap.String("collection", name), zap.Error(err))
			continue
		}
		total += info.NumDocuments
	}
	return total
}

func statusOf(v cluster.Verdict) Status {
	switch v {
	case cluster.Green:
		return Healthy
	case cluster.Yellow:
		return Degraded
	default:
		return Unhealthy
	}
}
