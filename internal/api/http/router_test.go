package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"procurement-query-pipeline/internal/app"
	"procurement-query-pipeline/internal/config"
	"procurement-query-pipeline/internal/executor"
	"procurement-query-pipeline/internal/llm/mock"
	"procurement-query-pipeline/internal/query"
	"procurement-query-pipeline/internal/schema"
)

type stubRunner struct {
	result  executor.Result
	pingErr error
	calls   int
	lastDoc *query.Document
}

func (s *stubRunner) Execute(_ context.Context, doc *query.Document) executor.Result {
	s.calls++
	s.lastDoc = doc
	return s.result
}

func (s *stubRunner) Ping(context.Context) error { return s.pingErr }

func newTestRouter(client *mock.Client, runner *stubRunner) http.Handler {
	application := app.New(&config.Configuration{})
	validator := query.NewValidator(schema.New())
	return NewRouter(application, client, validator, runner)
}

func postQuery(t *testing.T, router http.Handler, body string) (*httptest.ResponseRecorder, QueryResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, rec.Body.String())
	}
	return rec, resp
}

func TestLiveness(t *testing.T) {
	router := newTestRouter(mock.New(), &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/liveness", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"database reachable", nil, http.StatusOK},
		{"database down", errors.New("server selection timeout"), http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(mock.New(), &stubRunner{pingErr: tc.pingErr})

			req := httptest.NewRequest(http.MethodGet, "/v1/readiness", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestQuery_Success(t *testing.T) {
	client := mock.NewScripted([]string{`{"department_name": "Water Resources"}`})
	runner := &stubRunner{result: executor.Result{
		Success:     true,
		ResultCount: 42,
		Sample:      []bson.M{{"department_name": "Water Resources"}},
	}}
	router := newTestRouter(client, runner)

	rec, resp := postQuery(t, router, `{"question": "Show purchases by Water Resources"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success || resp.ResultCount != 42 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Sample) != 1 {
		t.Errorf("expected 1 sample record, got %d", len(resp.Sample))
	}
	if !strings.Contains(resp.GeneratedQuery, "department_name") {
		t.Errorf("expected normalized query in response, got %q", resp.GeneratedQuery)
	}
	if runner.calls != 1 {
		t.Errorf("expected one execution, got %d", runner.calls)
	}
}

func TestQuery_NormalizesAndWarns(t *testing.T) {
	client := mock.NewScripted([]string{`{"departmentName": "Water Resources"}`})
	runner := &stubRunner{result: executor.Result{Success: true, ResultCount: 3}}
	router := newTestRouter(client, runner)

	rec, resp := postQuery(t, router, `{"question": "Water Resources purchases"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(resp.GeneratedQuery, "department_name") {
		t.Errorf("expected camelCase field normalized, got %q", resp.GeneratedQuery)
	}
	if runner.lastDoc == nil {
		t.Fatal("expected the normalized query to be executed")
	}
	if _, ok := runner.lastDoc.Filter["department_name"]; !ok {
		t.Errorf("expected department_name in executed filter, got %v", runner.lastDoc.Filter)
	}
}

func TestQuery_InvalidFieldStillRunsWithWarning(t *testing.T) {
	client := mock.NewScripted([]string{`{"no_such_field": "x", "department_name": "Water Resources"}`})
	runner := &stubRunner{result: executor.Result{Success: true, ResultCount: 0}}
	router := newTestRouter(client, runner)

	rec, resp := postQuery(t, router, `{"question": "anything"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(resp.Warnings) == 0 {
		t.Error("expected a validation warning for the unknown field")
	}
	if runner.calls != 1 {
		t.Errorf("expected execution despite warning, got %d calls", runner.calls)
	}
}

func TestQuery_UnparseableModelOutput(t *testing.T) {
	client := mock.NewScripted([]string{"sorry, I cannot help with that"})
	runner := &stubRunner{}
	router := newTestRouter(client, runner)

	rec, resp := postQuery(t, router, `{"question": "anything"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if resp.Error == "" {
		t.Error("expected error message in response")
	}
	if runner.calls != 0 {
		t.Errorf("expected no execution for unparseable output, got %d calls", runner.calls)
	}
}

func TestQuery_ModelFailure(t *testing.T) {
	client := mock.New()
	client.Err = errors.New("rate limited")
	router := newTestRouter(client, &stubRunner{})

	rec, _ := postQuery(t, router, `{"question": "anything"}`)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestQuery_BadRequest(t *testing.T) {
	router := newTestRouter(mock.New(), &stubRunner{})

	for _, body := range []string{"", "not json", `{"question": ""}`} {
		rec, _ := postQuery(t, router, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestQuery_ExecutionFailure(t *testing.T) {
	client := mock.NewScripted([]string{`{"department_name": "Water Resources"}`})
	runner := &stubRunner{result: executor.Result{
		Success:       false,
		FailureReason: executor.ReasonTimeout,
		Error:         "context deadline exceeded",
	}}
	router := newTestRouter(client, runner)

	rec, resp := postQuery(t, router, `{"question": "anything"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if resp.Error != "context deadline exceeded" {
		t.Errorf("expected execution error surfaced, got %q", resp.Error)
	}
}
