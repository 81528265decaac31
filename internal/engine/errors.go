package engine

import (
	"errors"
	"time"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain"
)

// classify maps a transport failure onto a domain error kind, keeping the node origin.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *domain.ClusterError
	if errors.As(err, &ce) {
		return err
	}

	kind := domain.ErrCluster
	switch {
	case errors.Is(err, db.ErrAlreadyExists):
		kind = domain.ErrConflict
	case errors.Is(err, db.ErrNotFound):
		kind = domain.ErrNotFound
	case errors.Is(err, db.ErrNotSupported):
		kind = domain.ErrNotSupported
	case db.IsTransient(err):
		kind = domain.ErrTransientCluster
	}
	return newClusterError(op, kind, err)
}

func newClusterError(op string, kind, err error) *domain.ClusterError {
	ce := &domain.ClusterError{Kind: kind, Op: op, Time: time.Now(), Err: err}
	var de *db.Error
	if errors.As(err, &de) {
		ce.Node = de.Node
		ce.StatusCode = de.StatusCode
		ce.Message = de.Err.Error()
	} else {
		ce.Message = err.Error()
	}
	return ce
}

// permanent reports whether a create/delete failure must not be retried.
func permanent(err error) bool {
	if errors.Is(err, db.ErrAlreadyExists) || errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrNotSupported) {
		return true
	}
	var de *db.Error
	return errors.As(err, &de) && !de.Transient && de.StatusCode >= 400 && de.StatusCode < 500
}
