// Package web serves the QA document generator over HTTP. Each client
// works in its own session; generated artifacts stay in memory and are
// downloaded per session.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/harrison/qadocs/internal/confluence"
	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/pipeline"
	"github.com/harrison/qadocs/internal/render"
)

// DefaultMaxUpload caps the size of an uploaded PDF.
const DefaultMaxUpload = 32 << 20

// Content types of downloadable artifacts.
const (
	contentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	contentTypeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeJSON = "application/json"
)

// Generator runs the pipeline with in-memory targets.
type Generator interface {
	Generate(ctx context.Context, in pipeline.Input, sel pipeline.Selection) []pipeline.Outcome
}

// Publisher uploads a document to the wiki.
type Publisher interface {
	Upload(ctx context.Context, doc *confluence.Document) (*confluence.UploadResult, error)
}

// Logger receives server events.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// Config controls request limits.
type Config struct {
	MaxUploadBytes int64
	// Timeout bounds one generate request. Zero means no limit beyond the
	// client's connection.
	Timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithPublisher enables wiki uploads.
func WithPublisher(p Publisher) Option {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithSessionStore replaces the session store.
func WithSessionStore(st *SessionStore) Option {
	return func(s *Server) {
		s.sessions = st
	}
}

// Server is the HTTP front end.
type Server struct {
	router    chi.Router
	cfg       Config
	gen       Generator
	publisher Publisher
	sessions  *SessionStore
	metrics   *Metrics
	logger    Logger
}

// NewServer builds the router.
func NewServer(gen Generator, cfg Config, opts ...Option) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUpload
	}
	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		gen:      gen,
		sessions: NewSessionStore(),
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = NewMetrics(s.sessions.Len)
	s.routes()
	return s
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(s.metrics.Middleware)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.logger.LogDebug(fmt.Sprintf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond)))
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleResetSession)
			r.Post("/generate", s.handleGenerate)
			r.Get("/artifacts/{name}", s.handleArtifact)
			r.Get("/preview", s.handlePreview)
			r.Post("/upload/{kind}", s.handleUpload)
		})
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.logger.LogInfo("Session created: " + sess.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.TryReset(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New(`missing PDF in form field "file"`))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	sel, err := selection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	project := strings.TrimSpace(r.FormValue("project"))

	if err := sess.Begin(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	defer sess.End()

	ctx := r.Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	s.logger.LogInfo(fmt.Sprintf("Session %s: generating %d document(s) from %s", sess.ID, len(sel.Kinds()), header.Filename))
	in := pipeline.Input{PDF: data, PDFPath: header.Filename, Project: project}
	outcomes := s.gen.Generate(ctx, in, sel)

	failed := 0
	var firstErr error
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = o.Err
			}
			stage := string(models.StageOf(o.Err))
			if stage == "" {
				stage = "error"
			}
			s.metrics.Generation(string(o.Kind), stage, 0)
			s.logger.LogWarn(fmt.Sprintf("Session %s: %s failed: %v", sess.ID, o.Kind.Label(), o.Err))
			continue
		}
		s.metrics.Generation(string(o.Kind), "ok", o.Result.Duration)
	}
	sess.Store(in.ProjectName(), outcomes)

	status := http.StatusOK
	if failed == len(outcomes) && firstErr != nil {
		status = StatusFor(firstErr)
	}
	writeJSON(w, status, sess.Summary())
}

// selection reads the "plan" and "cases" form flags. When neither is
// given, both documents are generated.
func selection(r *http.Request) (pipeline.Selection, error) {
	planVal, casesVal := r.FormValue("plan"), r.FormValue("cases")
	if planVal == "" && casesVal == "" {
		return pipeline.Selection{Plan: true, Cases: true}, nil
	}
	parse := func(name, v string) (bool, error) {
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("invalid %s flag %q", name, v)
		}
		return b, nil
	}
	plan, err := parse("plan", planVal)
	if err != nil {
		return pipeline.Selection{}, err
	}
	cases, err := parse("cases", casesVal)
	if err != nil {
		return pipeline.Selection{}, err
	}
	if !plan && !cases {
		return pipeline.Selection{}, errors.New("select at least one document to generate")
	}
	return pipeline.Selection{Plan: plan, Cases: cases}, nil
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	kind, sidecar, err := parseArtifactName(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	res, ok := sess.Result(kind)
	if !ok || res.Buffers == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no %s generated in this session", kind.Label()))
		return
	}

	name, data, ctype := res.Buffers.DocumentName, res.Buffers.Document, contentTypeDocx
	if kind == models.KindTestCases {
		ctype = contentTypeXlsx
	}
	if sidecar {
		name, data, ctype = res.Buffers.SidecarName, res.Buffers.Sidecar, contentTypeJSON
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, ok := sess.Result(models.KindTestPlan)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no test plan generated in this session"))
		return
	}
	html, err := render.MarkdownToXHTML(render.TestPlanMarkdown(res.Plan, res.Project))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("confluence upload is not configured"))
		return
	}
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	res, ok := sess.Result(kind)
	if !ok || res.Buffers == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no %s generated in this session", kind.Label()))
		return
	}

	doc, err := confluence.NewDocument(kind, res.Project, res.Buffers.DocumentName, res.Buffers.Document, res.Buffers.Sidecar)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	up, err := s.publisher.Upload(r.Context(), doc)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"page_id":    up.Page.ID,
		"title":      up.Page.Title,
		"url":        up.Page.URL,
		"attachment": up.Attachment,
	})
}

// StatusFor maps a pipeline error to an HTTP status.
func StatusFor(err error) int {
	switch models.StageOf(err) {
	case models.StageInput, models.StageExtract:
		return http.StatusBadRequest
	case models.StageCredential:
		return http.StatusPreconditionFailed
	case models.StageCompletion, models.StageNormalize:
		return http.StatusBadGateway
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
}

// parseArtifactName accepts "plan.docx", "plan.json", "cases.xlsx" and
// "cases.json".
func parseArtifactName(name string) (models.Kind, bool, error) {
	base, ext, found := strings.Cut(name, ".")
	if !found {
		return "", false, fmt.Errorf("unknown artifact %q", name)
	}
	kind, err := models.ParseKind(base)
	if err != nil {
		return "", false, fmt.Errorf("unknown artifact %q", name)
	}
	switch "." + ext {
	case kind.Extension():
		return kind, false, nil
	case ".json":
		return kind, true, nil
	default:
		return "", false, fmt.Errorf("unknown artifact %q", name)
	}
}

func artifactNames(kind models.Kind) []string {
	short := "plan"
	if kind == models.KindTestCases {
		short = "cases"
	}
	return []string{short + kind.Extension(), short + ".json"}
}

func planTitle(res *pipeline.Result) string {
	if res.Plan == nil {
		return render.TestPlanTitle(res.Project)
	}
	return render.TestPlanTitle(res.Plan.Title(res.Project))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string)  {}
func (nopLogger) LogWarn(string)  {}
func (nopLogger) LogError(string) {}
