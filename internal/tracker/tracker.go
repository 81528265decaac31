// Package tracker emits structured search error events.
package tracker

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/indexsync/internal/domain"
	logpkg "github.com/kailas-cloud/indexsync/internal/logger"
)

// EventType tags every tracking event.
const EventType = "search_error"

// Node detail fields a failure can carry.
const (
	NodeHost         = "host"
	NodePort         = "port"
	NodeProtocol     = "protocol"
	NodePath         = "path"
	NodeErrorMessage = "error_message"
	NodeErrorCode    = "error_code"
	NodeTimestamp    = "timestamp"
)

// MaxNodeFields is every node field the tracker can extract, in output order.
var MaxNodeFields = []string{
	NodeHost, NodePort, NodeProtocol, NodePath, NodeErrorMessage, NodeErrorCode, NodeTimestamp,
}

// ValidLevel reports whether name is a known tracking severity.
func ValidLevel(name string) bool {
	_, err := logpkg.ParseLevel(name)
	return err == nil
}

// Config controls tracking.
type Config struct {
	Enabled         bool
	Level           string
	TrackNodeErrors bool
	NodeFields      []string
	Environment     string
}

// Tracker emits search_error events through zap.
type Tracker struct {
	cfg        Config
	level      zapcore.Level
	nodeFields []string
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a tracker. Unknown configured node fields are dropped.
func New(cfg Config, logger *zap.Logger) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Level == "" {
		cfg.Level = "error"
	}
	lvl, err := logpkg.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("error tracking: %w", err)
	}

	fields := make([]string, 0, len(MaxNodeFields))
	for _, f := range MaxNodeFields {
		if slices.Contains(cfg.NodeFields, f) {
			fields = append(fields, f)
		}
	}
	return &Tracker{cfg: cfg, level: lvl, nodeFields: fields, logger: logger, now: time.Now}, nil
}

// Disabled returns a tracker that drops every event.
func Disabled() *Tracker {
	return &Tracker{level: zapcore.ErrorLevel, logger: zap.NewNop(), now: time.Now}
}

// TrackError emits one event. It is a no-op when tracking is disabled.
// The exception position is the call site of TrackError.
func (t *Tracker) TrackError(message string, ctx map[string]any, err error) {
	if !t.cfg.Enabled {
		return
	}
	_, file, line, _ := runtime.Caller(1)

	fields := make([]zap.Field, 0, len(ctx)+6)
	fields = append(fields,
		zap.String("type", EventType),
		zap.Time("timestamp", t.now()),
		zap.String("environment", t.cfg.Environment),
		zap.String("severity", t.cfg.Level),
	)

	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, ctx[k]))
	}

	if err != nil {
		fields = append(fields, zap.Object("exception", exception{err: err, file: file, line: line}))
		if node := t.NodeDetails(err); node != nil {
			fields = append(fields, zap.Any("node", node))
		}
	}

	if ce := t.logger.Check(t.level, message); ce != nil {
		ce.Write(fields...)
	}
}

// NodeDetails extracts the allowed node fields from err. It returns nil when
// node tracking is off or err carries no node origin.
func (t *Tracker) NodeDetails(err error) map[string]any {
	if !t.cfg.TrackNodeErrors || err == nil {
		return nil
	}
	var ce *domain.ClusterError
	if !errors.As(err, &ce) || ce.Node == nil {
		return nil
	}

	all := map[string]any{
		NodeHost:         ce.Node.Host,
		NodePort:         ce.Node.Port,
		NodeProtocol:     ce.Node.Protocol,
		NodePath:         ce.Node.Path,
		NodeErrorMessage: ce.Message,
		NodeErrorCode:    ce.StatusCode,
		NodeTimestamp:    ce.Time.Unix(),
	}
	out := make(map[string]any, len(t.nodeFields))
	for _, f := range t.nodeFields {
		out[f] = all[f]
	}
	return out
}

// FormattedNodeDetails renders the failing node as host:port.
func (t *Tracker) FormattedNodeDetails(err error) (string, bool) {
	if !t.cfg.TrackNodeErrors {
		return "", false
	}
	n, ok := domain.NodeOf(err)
	if !ok || n.Host == "" {
		return "", false
	}
	return n.Addr(), true
}

type exception struct {
	err  error
	file string
	line int
}

func (e exception) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("class", fmt.Sprintf("%T", e.err))
	enc.AddString("kind", domain.Kind(e.err))
	enc.AddString("message", e.err.Error())
	var ce *domain.ClusterError
	if errors.As(e.err, &ce) {
		enc.AddInt("code", ce.StatusCode)
		enc.AddString("op", ce.Op)
	}
	if e.file != "" {
		enc.AddString("file", e.file)
		enc.AddInt("line", e.line)
	}
	return nil
}
