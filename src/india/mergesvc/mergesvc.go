// Package mergesvc exposes in-flight chain-compaction progress as a
// small JSON debug endpoint, the HTTP surface cmd/xdelta3-merge's
// --serve flag turns on while a long chain compaction runs.
package mergesvc

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

// Progress is one chain compaction's current state.
type Progress struct {
	Chain     string `json:"chain"`
	RoundSize int    `json:"round_size"`
	RoundDone int    `json:"round_done"`
	Done      bool   `json:"done"`
	Err       string `json:"error,omitempty"`
}

// Server tracks named in-flight chain compactions and serves their
// progress over HTTP.
type Server struct {
	mu       sync.Mutex
	progress map[string]Progress
	router   *mux.Router
}

// NewServer returns a Server with its routes registered.
func NewServer() *Server {
	s := &Server{
		progress: make(map[string]Progress),
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/progress", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/progress/{chain}", s.handleOne).Methods(http.MethodGet)

	return s
}

// Handler returns the server's http.Handler, for http.ListenAndServe or
// httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Update records the current progress of a named chain compaction.
// cmd/xdelta3-merge calls this from a chainsvc.ProgressFunc callback.
func (s *Server) Update(chain string, p Progress) {
	p.Chain = chain

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[chain] = p
}

// Finish marks a chain compaction as complete, recording err (if any)
// as the final status.
func (s *Server) Finish(chain string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.progress[chain]
	p.Chain = chain
	p.Done = true

	if err != nil {
		p.Err = err.Error()
	}

	s.progress[chain] = p
}

func (s *Server) snapshot() []Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Progress, 0, len(s.progress))
	for _, p := range s.progress {
		out = append(out, p)
	}

	return out
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleOne(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["chain"]

	s.mu.Lock()
	p, ok := s.progress[name]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
