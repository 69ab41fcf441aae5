package http

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/tablekit/tablekit/server/query"
	"github.com/tidwall/gjson"
)

type selectRequest struct {
	Table      string            `json:"table"`
	Properties []string          `json:"properties"`
	Where      map[string]any    `json:"where"`
	OrderBy    map[string]string `json:"orderBy"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req selectRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	spec := query.SelectSpec{
		Table:   req.Table,
		Columns: req.Properties,
		Where:   req.Where,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	// JSON objects have no order; sort for a deterministic ORDER BY.
	orderColumns := make([]string, 0, len(req.OrderBy))
	for column := range req.OrderBy {
		orderColumns = append(orderColumns, column)
	}
	sort.Strings(orderColumns)
	for _, column := range orderColumns {
		spec.OrderBy = append(spec.OrderBy, query.Order{Column: column, Direction: req.OrderBy[column]})
	}

	rows, err := s.engine.Select(r.Context(), spec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"data":  rows,
		"count": len(rows),
	})
}

type entityCreateRequest struct {
	Table      string         `json:"table"`
	ParentKey  string         `json:"parentKey"`
	Properties map[string]any `json:"properties"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read request body"})
		return
	}

	// An aggregateType field routes the request to the aggregate path;
	// everything else in the body is the record's data.
	if gjson.GetBytes(body, "aggregateType").Exists() {
		typeName, entityUID, data, ok := s.decodeAggregateBody(w, body, "entityUid")
		if !ok {
			return
		}
		id, err := s.repo.CreateAggregateRecord(r.Context(), typeName, entityUID, data)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
		return
	}

	var req entityCreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	var row query.Row
	if req.ParentKey != "" {
		row, err = s.repo.CreateChildEntity(r.Context(), req.ParentKey, req.Properties)
	} else {
		row, err = s.repo.CreateEntity(r.Context(), req.Table, req.Properties)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, row)
}

type entityUpdateRequest struct {
	Table      string         `json:"table"`
	UID        string         `json:"uid"`
	Properties map[string]any `json:"properties"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read request body"})
		return
	}

	if gjson.GetBytes(body, "aggregateType").Exists() {
		typeName, uid, data, ok := s.decodeAggregateBody(w, body, "uid")
		if !ok {
			return
		}
		row, err := s.repo.UpdateAggregateRecord(r.Context(), typeName, uid, data)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if row == nil {
			s.writeJSON(w, http.StatusNotFound, map[string]any{"error": "aggregate record not found"})
			return
		}
		s.writeJSON(w, http.StatusOK, row)
		return
	}

	var req entityUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	row, err := s.repo.UpdateEntityByUID(r.Context(), req.Table, req.UID, req.Properties)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if row == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": "entity not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, row)
}

// decodeAggregateBody splits an aggregate-path body into the type name,
// the identifying field, and the remaining data fields.
func (s *Server) decodeAggregateBody(w http.ResponseWriter, body []byte, idField string) (string, string, map[string]any, bool) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return "", "", nil, false
	}
	typeName, _ := raw["aggregateType"].(string)
	id, _ := raw[idField].(string)
	delete(raw, "aggregateType")
	delete(raw, idField)
	return typeName, id, raw, true
}

type deleteRequest struct {
	Table string `json:"table"`
	UID   string `json:"uid"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodDelete) {
		return
	}
	var req deleteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	var affected int64
	var err error
	if s.repo.IsEntityTable(req.Table) {
		affected, err = s.repo.DeleteEntityCascade(r.Context(), req.Table, req.UID)
	} else {
		affected, err = s.repo.DeleteEntity(r.Context(), req.Table, req.UID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"rowsAffected": affected,
	})
}

type distinctValuesRequest struct {
	TableName  string         `json:"tableName"`
	ColumnName string         `json:"columnName"`
	Filters    map[string]any `json:"filters"`
}

func (s *Server) handleDistinctValues(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req distinctValuesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	filters, err := query.ParseFilterMap(req.Filters)
	if err != nil {
		s.writeError(w, err)
		return
	}
	values, err := s.engine.DistinctValues(r.Context(), req.TableName, req.ColumnName, filters)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"values":     values,
		"columnName": req.ColumnName,
	})
}

type distinctRowsRequest struct {
	TableName  string         `json:"tableName"`
	ColumnList []string       `json:"columnList"`
	Filters    map[string]any `json:"filters"`
	Offset     int            `json:"offset"`
	Limit      int            `json:"limit"`
	OrderBy    string         `json:"orderBy"`
}

func (s *Server) handleDistinctRows(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req distinctRowsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	filters, err := query.ParseFilterMap(req.Filters)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.engine.DistinctRows(r.Context(), req.TableName, req.ColumnList, filters, req.Offset, req.Limit, req.OrderBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type aggregateRecordsRequest struct {
	AggregateType string `json:"aggregateType"`
	EntityUID     string `json:"entityUid"`
}

func (s *Server) handleAggregateRecords(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req aggregateRecordsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	records, err := s.repo.GetAggregateRecordsByEntityUID(r.Context(), req.AggregateType, req.EntityUID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"count": len(records),
	})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	tree, err := s.repo.GetEntityTreeData(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tree)
}

// handleStatus handles status requests
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "running",
		"server": "http",
	})
}

// handleInfo handles server information requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"server":   "tablekit-http",
		"version":  "0.1.0",
		"protocol": "HTTP/1.1",
		"endpoints": []string{
			"POST /select - Query table rows",
			"POST /create - Create entities and aggregate records",
			"POST /update - Update entities and aggregate records",
			"DELETE /delete - Delete rows, cascading for entity tables",
			"POST /distinct-values - Distinct values of one column",
			"POST /distinct-rows - Distinct row tuples with pagination",
			"POST /aggregate-records - Aggregate records for an entity",
			"GET /tree - Entity hierarchy",
			"GET /status - Server status",
			"GET /info - Server information",
			"GET /health - Health check",
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"server":    "tablekit-http",
	})
}
