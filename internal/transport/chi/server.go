// Package chi serves the admin HTTP API: health, metrics, schema preview and
// collection maintenance.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
	domsyn "github.com/kailas-cloud/indexsync/internal/domain/synonym"
	"github.com/kailas-cloud/indexsync/internal/usecase/health"
	"github.com/kailas-cloud/indexsync/internal/usecase/synonym"
	"github.com/kailas-cloud/indexsync/internal/usecase/syncer"
	"github.com/kailas-cloud/indexsync/internal/version"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest    = "bad_request"
	CodeUnauthorized  = "unauthorized"
	CodeNotFound      = "not_found"
	CodeConflict      = "conflict"
	CodeConfiguration = "configuration_error"
	CodeUnavailable   = "cluster_unavailable"
	CodeNotSupported  = "not_supported"
	CodeInternal      = "internal_error"
)

// Collection actions accepted by POST /collections/{entity}/{action}.
const (
	ActionCreate   = "create"
	ActionDelete   = "delete"
	ActionRecreate = "recreate"
	ActionReindex  = "reindex"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ActionResponse reports a collection action.
type ActionResponse struct {
	Entity   string `json:"entity"`
	Action   string `json:"action"`
	Success  bool   `json:"success"`
	Fetched  int    `json:"fetched,omitempty"`
	Imported int    `json:"imported,omitempty"`
	Failed   int    `json:"failed,omitempty"`
	Skipped  int    `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Syncer runs collection workflows.
type Syncer interface {
	Create(ctx context.Context, entity string) error
	Delete(ctx context.Context, entity string) error
	Recreate(ctx context.Context, entity string) bool
	ReindexDetailed(ctx context.Context, entity string) syncer.ReindexResult
}

// SchemaSource derives collection schemas.
type SchemaSource interface {
	Generate(entity string) (collection.Schema, error)
}

// HealthChecker evaluates the cluster.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Synonyms lists and applies synonym definitions.
type Synonyms interface {
	List(ctx context.Context, collection string) ([]domsyn.Synonym, error)
	Apply(ctx context.Context) (synonym.ApplyResult, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the admin handlers.
type Server struct {
	syncer        Syncer
	schemas       SchemaSource
	health        HealthChecker
	synonyms      Synonyms
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an admin API server.
func NewServer(sync Syncer, schemas SchemaSource, hc HealthChecker, syns Synonyms, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		syncer:   sync,
		schemas:  schemas,
		health:   hc,
		synonyms: syns,
		logger:   logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
			sentinelHandler(domain.ErrConflict, http.StatusConflict, CodeConflict),
			sentinelHandler(domain.ErrConfiguration, http.StatusUnprocessableEntity, CodeConfiguration),
			sentinelHandler(domain.ErrNotSupported, http.StatusNotImplemented, CodeNotSupported),
			sentinelHandler(domain.ErrTransientCluster, http.StatusServiceUnavailable, CodeUnavailable),
			sentinelHandler(domain.ErrCluster, http.StatusBadGateway, CodeUnavailable),
		},
	}
}

// Routes mounts the handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.Liveness)
	r.Get("/cluster/health", s.ClusterHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/collections/{entity}/schema", s.Schema)
	r.Post("/collections/{entity}/{action}", s.CollectionAction)
	r.Get("/synonyms", s.ListSynonyms)
	r.Post("/synonyms/apply", s.ApplySynonyms)
}

// Liveness handles GET /healthz.
func (s *Server) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  string(health.Healthy),
		"version": version.Version,
	})
}

// ClusterHealth handles GET /cluster/health. A red verdict answers 503.
func (s *Server) ClusterHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == health.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Schema handles GET /collections/{entity}/schema.
func (s *Server) Schema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.schemas.Generate(chi.URLParam(r, "entity"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// CollectionAction handles POST /collections/{entity}/{action}.
func (s *Server) CollectionAction(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	action := chi.URLParam(r, "action")
	resp := ActionResponse{Entity: entity, Action: action}

	var err error
	switch action {
	case ActionCreate:
		err = s.syncer.Create(r.Context(), entity)
	case ActionDelete:
		err = s.syncer.Delete(r.Context(), entity)
	case ActionRecreate:
		resp.Success = s.syncer.Recreate(r.Context(), entity)
		writeJSON(w, actionStatus(resp.Success), resp)
		return
	case ActionReindex:
		res := s.syncer.ReindexDetailed(r.Context(), entity)
		resp.Fetched = res.Fetched
		resp.Imported = res.Imported()
		resp.Failed = res.Summary.Failed
		resp.Skipped = res.Skipped
		resp.Success = res.Err == nil && res.Summary.Failed == 0
		if res.Err != nil {
			resp.Error = safeDomainMessage(res.Err)
		} else if res.Summary.FirstError != "" {
			resp.Error = res.Summary.FirstError
		}
		writeJSON(w, actionStatus(res.Err == nil), resp)
		return
	default:
		writeError(w, http.StatusNotFound, CodeNotFound, "unknown action "+action)
		return
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	resp.Success = true
	writeJSON(w, http.StatusOK, resp)
}

// ListSynonyms handles GET /synonyms?collection=.
func (s *Server) ListSynonyms(w http.ResponseWriter, r *http.Request) {
	list, err := s.synonyms.List(r.Context(), r.URL.Query().Get("collection"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if list == nil {
		list = []domsyn.Synonym{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// ApplySynonyms handles POST /synonyms/apply.
func (s *Server) ApplySynonyms(w http.ResponseWriter, r *http.Request) {
	res, err := s.synonyms.Apply(r.Context())
	body := map[string]any{"applied": res.Applied, "failed": res.Failed}
	if err != nil {
		s.logger.Warn("synonym apply incomplete", zap.Error(err))
		body["error"] = safeDomainMessage(err)
		writeJSON(w, http.StatusMultiStatus, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func actionStatus(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrNotSupported,
		domain.ErrTransientCluster,
		domain.ErrCluster,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if errors.Is(err, domain.ErrConfiguration) {
		return err.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
