package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHealth(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, decodeJSON(rec, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetHealthDB(t *testing.T) {
	db := pingerFunc(func(context.Context) error { return nil })
	srv := newTestServer(nil, nil, db)

	rec := doRequest(srv, http.MethodGet, "/healthz/db", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetHealthDB_Unreachable(t *testing.T) {
	db := pingerFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })
	srv := newTestServer(nil, nil, db)

	rec := doRequest(srv, http.MethodGet, "/healthz/db", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "db_unavailable", decodeErrorCode(t, rec))
}

func TestGetOpenAPI(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	rec := doRequest(srv, http.MethodGet, "/openapi.yaml", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "openapi:")
}
