// Package api exposes strand's HTTP embedding surface: installing a
// program, asserting/retracting facts, and dumping table membership for
// debugging, plus an opt-in Prometheus metrics endpoint.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
	"github.com/stranddb/strand/internal/engine"
)

// Server is strand's HTTP API server. Every handler translates an inbound
// request into a call against eng — the HTTP goroutine never touches the
// catalog or a TableStore directly; reads go through engine.Router.Snapshot,
// which runs on the router goroutine.
type Server struct {
	eng            *engine.Engine
	metricsEnabled bool
}

// NewServer wraps eng for HTTP access.
func NewServer(eng *engine.Engine) *Server {
	return &Server{eng: eng}
}

// EnableMetrics turns on the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/program", s.handleInstallProgram)
		r.Post("/facts/{table}", s.handleInsertFact)
		r.Delete("/facts/{table}", s.handleDeleteFact)
		r.Get("/tables/{table}", s.handleDumpTable)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleInstallProgram(w http.ResponseWriter, r *http.Request) {
	src, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}
	if err := s.eng.InstallProgram(string(src)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "installed"})
}

func (s *Server) handleInsertFact(w http.ResponseWriter, r *http.Request) {
	s.handleFact(w, r, domain.Insert)
}

func (s *Server) handleDeleteFact(w http.ResponseWriter, r *http.Request) {
	s.handleFact(w, r, domain.Delete)
}

func (s *Server) handleFact(w http.ResponseWriter, r *http.Request, polarity domain.Polarity) {
	table := chi.URLParam(r, "table")

	var raw []interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "decoding request body: "+err.Error())
		return
	}

	var values []domain.Datum
	var schemaErr error
	snapErr := s.eng.Router.Snapshot(func(cat *catalog.Catalog) {
		store, ok := cat.Table(table)
		if !ok {
			schemaErr = fmt.Errorf("unknown table %q", table)
			return
		}
		schema := store.Def().Schema
		if len(raw) != schema.TupleSize() {
			schemaErr = fmt.Errorf("table %q expects %d columns, got %d", table, schema.TupleSize(), len(raw))
			return
		}
		values = make([]domain.Datum, len(raw))
		for i, v := range raw {
			d, err := datumFromJSON(v, schema.Columns[i].Type)
			if err != nil {
				schemaErr = err
				return
			}
			values[i] = d
		}
	})
	if snapErr != nil {
		writeError(w, http.StatusServiceUnavailable, snapErr.Error())
		return
	}
	if schemaErr != nil {
		writeError(w, http.StatusBadRequest, schemaErr.Error())
		return
	}

	if err := s.eng.InstallFact(table, values, polarity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDumpTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var rows [][]interface{}
	var lookupErr error
	snapErr := s.eng.Router.Snapshot(func(cat *catalog.Catalog) {
		store, ok := cat.Table(table)
		if !ok {
			lookupErr = fmt.Errorf("unknown table %q", table)
			return
		}
		it := store.Scan()
		for it.Next() {
			t := it.Tuple()
			row := make([]interface{}, t.Len())
			for i := 0; i < t.Len(); i++ {
				row[i] = datumToJSON(t.Get(i))
			}
			rows = append(rows, row)
		}
	})
	if snapErr != nil {
		writeError(w, http.StatusServiceUnavailable, snapErr.Error())
		return
	}
	if lookupErr != nil {
		writeError(w, http.StatusNotFound, lookupErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"table": table, "rows": rows})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{"message": msg},
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
