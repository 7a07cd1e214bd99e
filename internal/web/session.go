package web

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/pipeline"
)

// ErrBusy is returned when a session already has a generation in flight.
var ErrBusy = errors.New("a generation is already running for this session")

// Session is one user's workspace. Artifacts generated in a session are
// never visible to another session.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	busy     bool
	lastUsed time.Time
	project  string
	results  map[models.Kind]*pipeline.Result
	errs     map[models.Kind]string
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Created:  now,
		lastUsed: now,
		results:  make(map[models.Kind]*pipeline.Result),
		errs:     make(map[models.Kind]string),
	}
}

// Begin marks the session busy. It fails with ErrBusy if a generation is
// already running.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	s.lastUsed = time.Now()
	return nil
}

// End clears the busy flag.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.lastUsed = time.Now()
}

// Busy reports whether a generation is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Store records the outcomes of a generation. Kinds that were not run keep
// their previous artifacts.
func (s *Session) Store(project string, outcomes []pipeline.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = project
	for _, o := range outcomes {
		if o.Err != nil {
			delete(s.results, o.Kind)
			s.errs[o.Kind] = o.Err.Error()
			continue
		}
		s.results[o.Kind] = o.Result
		delete(s.errs, o.Kind)
	}
}

// Result returns the latest successful result for kind.
func (s *Session) Result(kind models.Kind) (*pipeline.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[kind]
	return res, ok
}

// TryReset drops every artifact and error unless a generation is running,
// in which case it returns ErrBusy and leaves the session untouched.
func (s *Session) TryReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.project = ""
	s.results = make(map[models.Kind]*pipeline.Result)
	s.errs = make(map[models.Kind]string)
	s.lastUsed = time.Now()
	return nil
}

// Summary is the JSON view of a session.
type Summary struct {
	SessionID string            `json:"session_id"`
	Project   string            `json:"project,omitempty"`
	Busy      bool              `json:"busy"`
	Plan      *PlanSummary      `json:"plan,omitempty"`
	Cases     *CasesSummary     `json:"cases,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Artifacts []string          `json:"artifacts"`
}

// PlanSummary describes a generated test plan.
type PlanSummary struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// CasesSummary describes generated test cases.
type CasesSummary struct {
	Count    int               `json:"count"`
	Filename string            `json:"filename"`
	Stats    *models.CaseStats `json:"stats"`
}

// Summary snapshots the session.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{SessionID: s.ID, Project: s.project, Busy: s.busy, Artifacts: []string{}}
	if res, ok := s.results[models.KindTestPlan]; ok {
		sum.Plan = &PlanSummary{Title: planTitle(res), Filename: res.Buffers.DocumentName}
		sum.Artifacts = append(sum.Artifacts, artifactNames(models.KindTestPlan)...)
	}
	if res, ok := s.results[models.KindTestCases]; ok {
		sum.Cases = &CasesSummary{Count: len(res.Cases), Filename: res.Buffers.DocumentName, Stats: res.Stats}
		sum.Artifacts = append(sum.Artifacts, artifactNames(models.KindTestCases)...)
	}
	if len(s.errs) > 0 {
		sum.Errors = make(map[string]string, len(s.errs))
		for k, v := range s.errs {
			sum.Errors[string(k)] = v
		}
	}
	return sum
}

// SessionStore holds sessions keyed by id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a new session.
func (st *SessionStore) Create() *Session {
	s := newSession(st.now())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete removes a session.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Len returns the number of sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Prune removes idle sessions not used within ttl and returns how many
// were removed. Busy sessions are kept.
func (st *SessionStore) Prune(ttl time.Duration) int {
	cutoff := st.now().Add(-ttl)
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := !s.busy && s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
