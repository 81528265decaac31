package db

import (
	"errors"
	"strconv"

	"github.com/kailas-cloud/indexsync/internal/domain"
)

// Sentinel errors for engine operations.
var (
	ErrNotFound      = errors.New("db: not found")
	ErrAlreadyExists = errors.New("db: already exists")
	ErrNotSupported  = errors.New("db: not supported")
)

// Op names used for error context and metric labels.
const (
	OpCreateCollection   = "create_collection"
	OpDeleteCollection   = "delete_collection"
	OpRetrieveCollection = "retrieve_collection"
	OpImportDocuments    = "import_documents"
	OpUpsertDocument     = "upsert_document"
	OpDeleteDocument     = "delete_document"
	OpRetrieveDocument   = "retrieve_document"
	OpSearch             = "search"
	OpUpsertSynonym      = "upsert_synonym"
	OpListSynonyms       = "list_synonyms"
	OpDeleteSynonym      = "delete_synonym"
	OpHealth             = "health"
	OpDebug              = "debug"
	OpStats              = "stats"
)

// Error wraps an underlying error with the operation name and the node it came from.
type Error struct {
	Op         string
	Node       *domain.NodeOrigin
	StatusCode int
	// Transient is set for network failures and 5xx answers.
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Node != nil {
		msg += " " + e.Node.Addr()
	}
	if e.StatusCode != 0 {
		msg += " (" + strconv.Itoa(e.StatusCode) + ")"
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable transport failure.
func IsTransient(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Transient
}
