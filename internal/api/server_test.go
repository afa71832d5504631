package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stranddb/strand/internal/engine"
	"github.com/stranddb/strand/internal/parser"
	"github.com/stranddb/strand/internal/planner"
)

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	eng := engine.Construct(nil, parser.Parse, planner.Plan, planner.InstallFacts, nil)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.Shutdown(ctx)
	}
	return NewServer(eng), cleanup
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal() error: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}
}

func TestServer_InstallProgramThenFactThenDump(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/program", bytes.NewBufferString(`
		define link(int, int);
		define path(int, int);
		path(X,Y) :- link(X,Y);
		path(X,Z) :- link(X,Y), path(Y,Z);
	`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /v1/program status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/facts/link", []interface{}{float64(1), float64(2)})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /v1/facts/link status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/tables/path", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/tables/path status = %d, body %s", rec.Code, rec.Body.String())
	}
	var decoded struct {
		Rows [][]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if len(decoded.Rows) != 1 {
		t.Fatalf("Rows = %v, want 1 row", decoded.Rows)
	}
}

func TestServer_DeleteFactRetractsDerivations(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/program", bytes.NewBufferString(`
		define link(int, int);
		define path(int, int);
		path(X,Y) :- link(X,Y);
		link(1,2).
	`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /v1/program status = %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/facts/link", bytes.NewBufferString(`[1, 2]`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /v1/facts/link status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/tables/path", nil)
	var decoded struct {
		Rows [][]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if len(decoded.Rows) != 0 {
		t.Fatalf("Rows after retraction = %v, want none", decoded.Rows)
	}
}

func TestServer_UnknownTableReturns404(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/v1/tables/nosuchtable", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET of an unknown table status = %d, want 404", rec.Code)
	}
}

func TestServer_BadProgramReturns400(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/v1/program", bytes.NewBufferString(`define a(widget);`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST of an invalid program status = %d, want 400", rec.Code)
	}
}

func TestServer_ArityMismatchReturns400(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/program", bytes.NewBufferString(`define link(int, int);`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /v1/program status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/facts/link", []interface{}{float64(1)})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST with wrong arity status = %d, want 400", rec.Code)
	}
}
