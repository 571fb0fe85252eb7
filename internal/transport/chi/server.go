package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/firerest"
	"github.com/kailas-cloud/firerest/internal/codec"
	logpkg "github.com/kailas-cloud/firerest/internal/logger"
	healthuc "github.com/kailas-cloud/firerest/internal/usecase/health"
	"github.com/kailas-cloud/firerest/internal/version"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest          = "bad_request"
	CodeUnauthorized        = "unauthorized"
	CodeInvalidOperation    = "invalid_operation"
	CodeUnsupportedOperator = "unsupported_operator"
	CodeUnsupportedValue    = "unsupported_value"
	CodeNotFound            = "not_found"
	CodeUpstreamError       = "upstream_error"
	CodeUnexpectedResponse  = "unexpected_response"
	CodeInternalError       = "internal_error"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DocumentResponse is a single document.
type DocumentResponse struct {
	ID         string         `json:"id"`
	Path       string         `json:"path"`
	Name       string         `json:"name"`
	Data       map[string]any `json:"data"`
	CreateTime *time.Time     `json:"createTime,omitempty"`
	UpdateTime *time.Time     `json:"updateTime,omitempty"`
}

// QueryResponse is the result of reading a collection.
type QueryResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Size      int                `json:"size"`
}

// SetRequest is the PATCH body.
type SetRequest struct {
	Data        map[string]any `json:"data"`
	Merge       bool           `json:"merge,omitempty"`
	MergeFields []string       `json:"mergeFields,omitempty"`
}

// AddRequest is the POST body.
type AddRequest struct {
	Data map[string]any `json:"data"`
}

// WriteResponse describes a completed write.
type WriteResponse struct {
	ID        string         `json:"id,omitempty"`
	Path      string         `json:"path,omitempty"`
	WriteTime *time.Time     `json:"writeTime,omitempty"`
	Data      map[string]any `json:"data"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Project string            `json:"project"`
	Version string            `json:"version"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes a firerest client over HTTP.
type Server struct {
	client        *firerest.Client
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates a gateway server for the given client.
func NewServer(client *firerest.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		client: client,
		health: healthuc.New(map[string]healthuc.Pinger{"backend": client}),
		logger: logger,
		errorHandlers: []errorHandler{
			sentinelHandler(firerest.ErrInvalidOperation, http.StatusBadRequest, CodeInvalidOperation),
			sentinelHandler(firerest.ErrUnsupportedOperator, http.StatusBadRequest, CodeUnsupportedOperator),
			sentinelHandler(firerest.ErrUnsupportedValue, http.StatusBadRequest, CodeUnsupportedValue),
			sentinelHandler(firerest.ErrNotFound, http.StatusNotFound, CodeNotFound),
			sentinelHandler(firerest.ErrUnexpectedResponse, http.StatusBadGateway, CodeUnexpectedResponse),
			transportHandler,
		},
	}
}

// Routes mounts the document, health and metrics routes.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Get("/v1/documents", s.GetDocuments)
	r.Get("/v1/documents/*", s.GetDocuments)
	r.Patch("/v1/documents/*", s.SetDocument)
	r.Post("/v1/documents/*", s.AddDocument)
	r.Delete("/v1/documents/*", s.DeleteDocument)
}

// GetDocuments handles GET /v1/documents/{path}. A document path returns the
// document, a collection path returns every document matching the
// repeatable ?where= filters, and the bare prefix lists the root.
func (s *Server) GetDocuments(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	filters := r.URL.Query()["where"]

	if path == "" {
		if len(filters) > 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidOperation, "where is not supported on the documents root")
			return
		}
		snap, err := s.client.Get(r.Context())
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, queryToResponse(snap))
		return
	}

	ref, err := s.client.Resolve(path)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if doc, ok := ref.(*firerest.DocumentRef); ok {
		if len(filters) > 0 {
			writeError(w, http.StatusBadRequest, CodeInvalidOperation, "where requires a collection path")
			return
		}
		snap, err := doc.Get(r.Context())
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, documentToResponse(snap))
		return
	}

	col, err := firerest.AsCollection(ref)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	q, err := applyFilters(col, filters)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	snap, err := q.Get(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queryToResponse(snap))
}

// SetDocument handles PATCH /v1/documents/{path}.
func (s *Server) SetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.resolveDocument(w, r)
	if !ok {
		return
	}

	var req SetRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var opts []firerest.SetOption
	switch {
	case req.MergeFields != nil:
		opts = append(opts, firerest.MergeFields(req.MergeFields...))
	case req.Merge:
		opts = append(opts, firerest.Merge())
	}

	wr, err := doc.Set(r.Context(), req.Data, opts...)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, writeToResponse(doc, wr))
}

// AddDocument handles POST /v1/documents/{collection}.
func (s *Server) AddDocument(w http.ResponseWriter, r *http.Request) {
	ref, err := s.client.Resolve(chi.URLParam(r, "*"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	col, err := firerest.AsCollection(ref)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var req AddRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, wr, err := col.Add(r.Context(), req.Data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, writeToResponse(doc, wr))
}

// DeleteDocument handles DELETE /v1/documents/{path}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.resolveDocument(w, r)
	if !ok {
		return
	}
	if _, err := doc.Delete(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Project: s.client.Project(),
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) resolveDocument(w http.ResponseWriter, r *http.Request) (*firerest.DocumentRef, bool) {
	ref, err := s.client.Resolve(chi.URLParam(r, "*"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, false
	}
	doc, err := firerest.AsDocument(ref)
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, false
	}
	return doc, true
}

func applyFilters(col *firerest.CollectionRef, filters []string) (*firerest.Query, error) {
	q := col.Query()
	for _, expr := range filters {
		var err error
		if q, err = q.WhereExpr(expr); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func documentToResponse(snap *firerest.DocumentSnapshot) DocumentResponse {
	resp := DocumentResponse{
		ID:   snap.ID(),
		Path: snap.Ref.Path(),
		Name: snap.Name(),
		Data: codec.Presentable(snap.Data()),
	}
	if t := snap.CreateTime(); !t.IsZero() {
		resp.CreateTime = &t
	}
	if t := snap.UpdateTime(); !t.IsZero() {
		resp.UpdateTime = &t
	}
	return resp
}

func queryToResponse(snap *firerest.QuerySnapshot) QueryResponse {
	resp := QueryResponse{
		Documents: make([]DocumentResponse, 0, snap.Size()),
		Size:      snap.Size(),
	}
	snap.ForEach(func(doc *firerest.DocumentSnapshot) {
		resp.Documents = append(resp.Documents, documentToResponse(doc))
	})
	return resp
}

func writeToResponse(doc *firerest.DocumentRef, wr *firerest.WriteResult) WriteResponse {
	resp := WriteResponse{
		ID:   doc.ID(),
		Path: doc.Path(),
		Data: codec.Presentable(wr.Data()),
	}
	if !wr.WriteTime.IsZero() {
		t := wr.WriteTime
		resp.WriteTime = &t
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The full error text goes to the client: it names the offending path,
// field or operator and carries no internals.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// transportHandler reports upstream failures as 502 with the upstream status
// message only.
func transportHandler(w http.ResponseWriter, err error) bool {
	var te *firerest.TransportError
	if !errors.As(err, &te) {
		return false
	}
	msg := te.Message
	if msg == "" {
		msg = firerest.ErrTransport.Error()
	}
	writeError(w, http.StatusBadGateway, CodeUpstreamError, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.String("path", r.URL.Path), zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
