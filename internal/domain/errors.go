package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrConfiguration signals bad or missing type metadata. Always fatal, never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrConflict signals an already existing resource.
	ErrConflict = errors.New("already exists")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrTransientCluster signals a network or availability failure that outlived retries.
	ErrTransientCluster = errors.New("transient cluster error")
	// ErrLogic signals a custom normalizer that returned the wrong shape.
	ErrLogic = errors.New("logic error")
	// ErrCluster is the catch-all for any other cluster failure.
	ErrCluster = errors.New("cluster error")
	// ErrNotSupported signals an operation the configured engine cannot perform.
	ErrNotSupported = errors.New("not supported")
)

// NodeOrigin identifies the cluster node a failure came from.
type NodeOrigin struct {
	Host     string
	Port     int
	Protocol string
	Role     string
	Path     string
}

// Addr returns host:port.
func (n NodeOrigin) Addr() string {
	return n.Host + ":" + strconv.Itoa(n.Port)
}

// ClusterError is a classified engine failure with optional per-node origin.
type ClusterError struct {
	Kind       error // one of the sentinel errors above
	Op         string
	StatusCode int
	Message    string
	Node       *NodeOrigin
	Time       time.Time
	Err        error
}

func (e *ClusterError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Node != nil {
		msg += " (node " + e.Node.Addr() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *ClusterError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewConfigurationError formats a configuration error.
func NewConfigurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// NewLogicError formats a logic error.
func NewLogicError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLogic, fmt.Sprintf(format, args...))
}

// NodeOf returns the node origin carried by err, if any.
func NodeOf(err error) (NodeOrigin, bool) {
	var ce *ClusterError
	if errors.As(err, &ce) && ce.Node != nil {
		return *ce.Node, true
	}
	return NodeOrigin{}, false
}

// Kind names the error class for logs and tracking events.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransientCluster):
		return "transient_cluster"
	case errors.Is(err, ErrLogic):
		return "logic"
	case errors.Is(err, ErrNotSupported):
		return "not_supported"
	default:
		return "cluster"
	}
}
