package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-errors/errors"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	indexer "github.com/xompass/mongo-index-creator"
	"github.com/xompass/mongo-index-creator/http_errors"
	"github.com/xompass/mongo-index-creator/lock"
)

type fakeRunner struct {
	codes  []string
	called int
	err    error
}

func (r *fakeRunner) Run(_ context.Context, clientCodes ...string) (*indexer.Report, error) {
	r.called++
	r.codes = clientCodes
	if r.err != nil {
		return nil, r.err
	}

	report := indexer.NewReport()
	report.Merge(indexer.Outcome{
		Target:  indexer.CollectionID{DatabaseKey: "core", Role: indexer.RoleWrite, Collection: "User"},
		Created: []string{"email"},
	})
	return report, nil
}

type lockedLocker struct{}

func (lockedLocker) Acquire(context.Context) (lock.Release, error) {
	return nil, lock.ErrLocked
}

func serve(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	server.EchoApp.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	server := New(Options{Runner: &fakeRunner{}})

	rec := serve(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunAll(t *testing.T) {
	runner := &fakeRunner{}
	server := New(Options{Runner: runner})

	rec := serve(t, server, http.MethodPost, "/indexes", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, runner.called)
	assert.Empty(t, runner.codes)

	var summary indexer.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Totals.Created)
	assert.Equal(t, []string{"email"}, summary.Collections["core.write.User"].Created)
}

func TestRunForClient(t *testing.T) {
	runner := &fakeRunner{}
	server := New(Options{Runner: runner})

	rec := serve(t, server, http.MethodPost, "/indexes", `{"clientCode": "acme"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"acme"}, runner.codes)

	rec = serve(t, server, http.MethodPost, "/indexes", `{"clientCodes": ["acme", "globex"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"acme", "globex"}, runner.codes)
}

func TestRunInvalidBody(t *testing.T) {
	runner := &fakeRunner{}
	server := New(Options{Runner: runner})

	rec := serve(t, server, http.MethodPost, "/indexes", `{"clientCode": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, runner.called)
}

func TestRunInProgress(t *testing.T) {
	runner := &fakeRunner{}
	server := New(Options{Runner: runner, Locker: lockedLocker{}})

	rec := serve(t, server, http.MethodPost, "/indexes", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, runner.called)

	var response http_errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, RUN_IN_PROGRESS, response.ErrorCode)
}

func TestRunConfigurationError(t *testing.T) {
	_, decodeErr := indexer.DecodeCollections(nil)
	require.Error(t, decodeErr)

	server := New(Options{Runner: &fakeRunner{err: decodeErr}})

	rec := serve(t, server, http.MethodPost, "/indexes", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var response http_errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, indexer.INVALID_COLLECTIONS, response.ErrorCode)
	assert.Equal(t, decodeErr.Error(), response.Message)
}

func TestRunUnexpectedError(t *testing.T) {
	server := New(Options{Runner: &fakeRunner{err: errors.New("boom")}})

	rec := serve(t, server, http.MethodPost, "/indexes", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestNotFound(t *testing.T) {
	server := New(Options{Runner: &fakeRunner{}})

	rec := serve(t, server, http.MethodGet, "/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheckFailure(t *testing.T) {
	server := New(Options{
		Runner:      &fakeRunner{},
		HealthCheck: func(context.Context) error {
			return errors.New("server selection timeout")
		},
	})

	rec := serve(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "server selection timeout")
}
