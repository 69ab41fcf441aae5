package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablekit/tablekit/server/aggregate"
	"github.com/tablekit/tablekit/server/config"
	"github.com/tablekit/tablekit/server/query"
	"github.com/tablekit/tablekit/server/repository"
	"github.com/tablekit/tablekit/server/schema"
	"github.com/tablekit/tablekit/server/storage"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.LoadDefaultConfig()
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "tablekit.db")

	schemas, err := schema.LoadRegistry(cfg)
	require.NoError(t, err)
	aggregates, err := aggregate.LoadRegistry(cfg, schemas)
	require.NoError(t, err)

	store, err := storage.Open(&cfg.Storage, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureTables(context.Background(), schemas))

	engine := query.NewEngine(store, schemas, zerolog.Nop())
	repo := repository.New(store, engine, schemas, aggregates, cfg.Entities, zerolog.Nop())

	server, err := NewServer(engine, repo, zerolog.Nop())
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createDrug(t *testing.T, ts *httptest.Server, name string) string {
	t.Helper()
	resp, body := doJSON(t, ts, http.MethodPost, "/create", map[string]any{
		"table":      "drug_catalog",
		"properties": map[string]any{"name": name},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uid, _ := body["uid"].(string)
	require.NotEmpty(t, uid)
	return uid
}

func TestSelectEndpoint(t *testing.T) {
	ts := testServer(t)
	createDrug(t, ts, "aspirin")
	createDrug(t, ts, "ibuprofen")

	resp, body := doJSON(t, ts, http.MethodPost, "/select", map[string]any{
		"table":   "drug_catalog",
		"where":   map[string]any{"name": "aspirin"},
		"orderBy": map[string]string{"name": "asc"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "aspirin", data[0].(map[string]any)["name"])
}

func TestSelectRejectsUnknownTable(t *testing.T) {
	ts := testServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/select", map[string]any{
		"table": "no_such_table",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestCreateChildEntityViaParentKey(t *testing.T) {
	ts := testServer(t)
	parentUID := createDrug(t, ts, "aspirin")

	resp, body := doJSON(t, ts, http.MethodPost, "/create", map[string]any{
		"table":      "product_catalog",
		"parentKey":  "aspirin",
		"properties": map[string]any{"name": "aspirin 500mg"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "aspirin 500mg", body["name"])

	resp, tree := doJSON(t, ts, http.MethodGet, "/tree", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	childrenMap := tree["childrenMap"].(map[string]any)
	require.Len(t, childrenMap[parentUID], 1)
}

func TestCreateChildEntityMissingParentIs404(t *testing.T) {
	ts := testServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/create", map[string]any{
		"table":      "product_catalog",
		"parentKey":  "nonexistent",
		"properties": map[string]any{"name": "orphan"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAggregateCreateDispatch(t *testing.T) {
	ts := testServer(t)
	uid := createDrug(t, ts, "aspirin")

	resp, body := doJSON(t, ts, http.MethodPost, "/create", map[string]any{
		"aggregateType": "GenericRoute",
		"entityUid":     uid,
		"route":         "oral",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["id"])

	resp, records := doJSON(t, ts, http.MethodPost, "/aggregate-records", map[string]any{
		"aggregateType": "GenericRoute",
		"entityUid":     uid,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), records["count"])
}

func TestAggregateCreateUnknownTypeIs400(t *testing.T) {
	ts := testServer(t)
	uid := createDrug(t, ts, "aspirin")

	resp, _ := doJSON(t, ts, http.MethodPost, "/create", map[string]any{
		"aggregateType": "NoSuchType",
		"entityUid":     uid,
		"route":         "oral",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateEndpoint(t *testing.T) {
	ts := testServer(t)
	uid := createDrug(t, ts, "aspirin")

	resp, body := doJSON(t, ts, http.MethodPost, "/update", map[string]any{
		"table":      "drug_catalog",
		"uid":        uid,
		"properties": map[string]any{"manufacturer": "Bayer"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bayer", body["manufacturer"])

	resp, _ = doJSON(t, ts, http.MethodPost, "/update", map[string]any{
		"table":      "drug_catalog",
		"uid":        "missing",
		"properties": map[string]any{"manufacturer": "Bayer"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteCascadesForEntityTables(t *testing.T) {
	ts := testServer(t)
	uid := createDrug(t, ts, "aspirin")

	resp, _ := doJSON(t, ts, http.MethodPost, "/create", map[string]any{
		"aggregateType": "GenericRoute",
		"entityUid":     uid,
		"route":         "oral",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, ts, http.MethodDelete, "/delete", map[string]any{
		"table": "drug_catalog",
		"uid":   uid,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	// The drug row plus its dosing route.
	assert.Equal(t, float64(2), body["rowsAffected"])
}

func TestDistinctValuesEndpoint(t *testing.T) {
	ts := testServer(t)
	createDrug(t, ts, "aspirin")
	createDrug(t, ts, "ibuprofen")

	resp, body := doJSON(t, ts, http.MethodPost, "/distinct-values", map[string]any{
		"tableName":  "drug_catalog",
		"columnName": "name",
		"filters":    map[string]any{},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	values := body["values"].([]any)
	assert.Equal(t, []any{"aspirin", "ibuprofen"}, values)
	assert.Equal(t, "name", body["columnName"])
}

func TestDistinctRowsEndpoint(t *testing.T) {
	ts := testServer(t)
	createDrug(t, ts, "aspirin")
	createDrug(t, ts, "ibuprofen")

	resp, body := doJSON(t, ts, http.MethodPost, "/distinct-rows", map[string]any{
		"tableName":  "drug_catalog",
		"columnList": []string{"name"},
		"filters":    map[string]any{},
		"limit":      1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["totalRows"])
	assert.Len(t, body["data"].([]any), 1)
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestMethodNotAllowed(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/select")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
