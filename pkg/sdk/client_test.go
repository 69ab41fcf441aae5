package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(Options{Addr: ts.URL})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAddr(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)
}

func TestSelect(t *testing.T) {
	client := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/select", r.URL.Path)

		var req SelectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "drug_catalog", req.Table)

		json.NewEncoder(w).Encode(SelectResponse{
			Data:  []Row{{"uid": "d1", "name": "aspirin"}},
			Count: 1,
		})
	})

	resp, err := client.Select(context.Background(), SelectRequest{
		Table: "drug_catalog",
		Where: map[string]any{"name": "aspirin"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "aspirin", resp.Data[0]["name"])
}

func TestCreateAggregateRecordPayloadShape(t *testing.T) {
	client := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		// Data fields sit at the top level next to the dispatch fields.
		assert.Equal(t, "GenericRoute", payload["aggregateType"])
		assert.Equal(t, "d1", payload["entityUid"])
		assert.Equal(t, "oral", payload["route"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "id": "rec-1"})
	})

	id, err := client.CreateAggregateRecord(context.Background(), "GenericRoute", "d1", map[string]any{"route": "oral"})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id)
}

func TestDeleteUsesDeleteMethod(t *testing.T) {
	client := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		json.NewEncoder(w).Encode(DeleteResponse{Success: true, RowsAffected: 3})
	})

	resp, err := client.Delete(context.Background(), "drug_catalog", "d1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(3), resp.RowsAffected)
}

func TestAPIErrorDecoding(t *testing.T) {
	client := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "unknown table \"bogus\"",
			"code":  "schema.unknown_table",
		})
	})

	_, err := client.Select(context.Background(), SelectRequest{Table: "bogus"})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "schema.unknown_table", apiErr.Code)
}

func TestTree(t *testing.T) {
	client := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tree", r.URL.Path)
		json.NewEncoder(w).Encode(TreeResponse{
			Ancestors:   []Row{{"uid": "d1"}},
			ChildrenMap: map[string][]Row{"d1": {{"uid": "p1"}}},
		})
	})

	tree, err := client.Tree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree.Ancestors, 1)
	assert.Len(t, tree.ChildrenMap["d1"], 1)
}

func TestDistinctRows(t *testing.T) {
	client := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(DistinctRowsResponse{
			Data:      []Row{{"name": "aspirin"}},
			Columns:   []string{"name"},
			TotalRows: 7,
			Limit:     1,
		})
	})

	resp, err := client.DistinctRows(context.Background(), DistinctRowsRequest{
		TableName:  "drug_catalog",
		ColumnList: []string{"name"},
		Limit:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.TotalRows)
	require.Len(t, resp.Data, 1)
}
