// Package sdk is the Go client for the Tablekit HTTP API. It mirrors the
// server's JSON shapes one to one; nothing here validates identifiers, the
// server owns that.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Options configures a Client.
type Options struct {
	// Addr is the server base URL, e.g. "http://localhost:2947".
	Addr string
	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration
	// Logger is optional; zap.NewNop is used when nil.
	Logger *zap.Logger
}

// Client talks to one Tablekit server. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client from options.
func NewClient(opt Options) (*Client, error) {
	if opt.Addr == "" {
		return nil, errors.New("sdk: server address is required")
	}
	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opt.Addr, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Row is one result row keyed by column name.
type Row map[string]any

// SelectRequest queries rows from one table.
type SelectRequest struct {
	Table      string            `json:"table"`
	Properties []string          `json:"properties,omitempty"`
	Where      map[string]any    `json:"where,omitempty"`
	OrderBy    map[string]string `json:"orderBy,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
}

// SelectResponse is the result of a select.
type SelectResponse struct {
	Data  []Row `json:"data"`
	Count int   `json:"count"`
}

// Select queries rows.
func (c *Client) Select(ctx context.Context, req SelectRequest) (*SelectResponse, error) {
	var resp SelectResponse
	if err := c.do(ctx, http.MethodPost, "/select", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateEntityRequest creates an entity row. Setting ParentKey creates a
// child entity linked to the named parent.
type CreateEntityRequest struct {
	Table      string         `json:"table"`
	ParentKey  string         `json:"parentKey,omitempty"`
	Properties map[string]any `json:"properties"`
}

// CreateEntity creates an entity or child entity and returns the new row.
func (c *Client) CreateEntity(ctx context.Context, req CreateEntityRequest) (Row, error) {
	var row Row
	if err := c.do(ctx, http.MethodPost, "/create", req, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// CreateAggregateRecord creates a record of the given aggregate type owned
// by the entity and returns the new record's id.
func (c *Client) CreateAggregateRecord(ctx context.Context, aggregateType, entityUID string, data map[string]any) (string, error) {
	payload := make(map[string]any, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload["aggregateType"] = aggregateType
	payload["entityUid"] = entityUID

	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/create", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdateEntityRequest updates an entity row by uid.
type UpdateEntityRequest struct {
	Table      string         `json:"table"`
	UID        string         `json:"uid"`
	Properties map[string]any `json:"properties"`
}

// UpdateEntity updates an entity and returns the updated row.
func (c *Client) UpdateEntity(ctx context.Context, req UpdateEntityRequest) (Row, error) {
	var row Row
	if err := c.do(ctx, http.MethodPost, "/update", req, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateAggregateRecord updates one aggregate record and returns the
// updated row.
func (c *Client) UpdateAggregateRecord(ctx context.Context, aggregateType, uid string, data map[string]any) (Row, error) {
	payload := make(map[string]any, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload["aggregateType"] = aggregateType
	payload["uid"] = uid

	var row Row
	if err := c.do(ctx, http.MethodPost, "/update", payload, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteResponse reports the outcome of a delete.
type DeleteResponse struct {
	Success      bool  `json:"success"`
	RowsAffected int64 `json:"rowsAffected"`
}

// Delete removes a row by uid. Entity-family tables cascade on the server.
func (c *Client) Delete(ctx context.Context, table, uid string) (*DeleteResponse, error) {
	var resp DeleteResponse
	body := map[string]string{"table": table, "uid": uid}
	if err := c.do(ctx, http.MethodDelete, "/delete", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DistinctValuesResponse is the candidate value list for one column.
type DistinctValuesResponse struct {
	Values     []string `json:"values"`
	ColumnName string   `json:"columnName"`
}

// DistinctValues returns the distinct values a column can take under the
// given filters.
func (c *Client) DistinctValues(ctx context.Context, table, column string, filters map[string]any) (*DistinctValuesResponse, error) {
	body := map[string]any{
		"tableName":  table,
		"columnName": column,
		"filters":    filters,
	}
	var resp DistinctValuesResponse
	if err := c.do(ctx, http.MethodPost, "/distinct-values", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DistinctRowsRequest queries one page of distinct row tuples.
type DistinctRowsRequest struct {
	TableName  string         `json:"tableName"`
	ColumnList []string       `json:"columnList"`
	Filters    map[string]any `json:"filters,omitempty"`
	Offset     int            `json:"offset,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	OrderBy    string         `json:"orderBy,omitempty"`
}

// DistinctRowsResponse is one page of distinct tuples plus the total.
type DistinctRowsResponse struct {
	Data      []Row    `json:"data"`
	Columns   []string `json:"columns"`
	TotalRows int      `json:"totalRows"`
	Offset    int      `json:"offset"`
	Limit     int      `json:"limit"`
}

// DistinctRows returns one page of distinct row tuples.
func (c *Client) DistinctRows(ctx context.Context, req DistinctRowsRequest) (*DistinctRowsResponse, error) {
	var resp DistinctRowsResponse
	if err := c.do(ctx, http.MethodPost, "/distinct-rows", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AggregateRecordsResponse lists the aggregate records an entity owns.
type AggregateRecordsResponse struct {
	Data  []Row `json:"data"`
	Count int   `json:"count"`
}

// AggregateRecords returns every record of one aggregate type owned by the
// entity.
func (c *Client) AggregateRecords(ctx context.Context, aggregateType, entityUID string) (*AggregateRecordsResponse, error) {
	body := map[string]string{
		"aggregateType": aggregateType,
		"entityUid":     entityUID,
	}
	var resp AggregateRecordsResponse
	if err := c.do(ctx, http.MethodPost, "/aggregate-records", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TreeResponse is the entity hierarchy.
type TreeResponse struct {
	Ancestors   []Row            `json:"ancestors"`
	ChildrenMap map[string][]Row `json:"childrenMap"`
}

// Tree returns the full entity hierarchy.
func (c *Client) Tree(ctx context.Context) (*TreeResponse, error) {
	var resp TreeResponse
	if err := c.do(ctx, http.MethodGet, "/tree", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]any
	return c.do(ctx, http.MethodGet, "/health", nil, &resp)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sdk: server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("sdk: server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(payload)}
		var decoded struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(payload, &decoded) == nil && decoded.Error != "" {
			apiErr.Message = decoded.Error
			apiErr.Code = decoded.Code
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return errors.Wrap(err, "decode response body")
		}
	}
	return nil
}
