// Package client is a typed HTTP client for the blogger API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cheroliv/blogger/internal/model"
)

// Content types sent by the client.
const (
	ContentTypeJSON       = "application/json"
	ContentTypeMergePatch = "application/merge-patch+json"
)

// DefaultTimeout applies when New is given a nil http.Client.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx answer decoded from a problem body.
type APIError struct {
	Status      int                `json:"status"`
	Title       string             `json:"title"`
	EntityName  string             `json:"entityName"`
	ErrorKey    string             `json:"errorKey"`
	FieldErrors []model.FieldError `json:"fieldErrors"`
}

func (e *APIError) Error() string {
	if e.ErrorKey == "" {
		return fmt.Sprintf("blogger api: status %d", e.Status)
	}
	return fmt.Sprintf("blogger api: status %d: %s (%s)", e.Status, e.Title, e.ErrorKey)
}

// Client talks to one blogger server.
type Client struct {
	baseURL *url.URL
	http    *http.Client

	People   *Resource[model.Person]
	Articles *Resource[model.Article]
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	c := &Client{baseURL: u, http: httpClient}
	c.People = &Resource[model.Person]{c: c, path: "/api/people"}
	c.Articles = &Resource[model.Article]{c: c, path: "/api/articles"}
	return c, nil
}

// Coucou calls the plain-text greeting endpoint.
func (c *Client) Coucou(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/coucou", nil, "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// Audits lists recorded alerts, newest first. entityName may be empty.
func (c *Client) Audits(ctx context.Context, entityName string, opts ListOptions) ([]*model.AuditEvent, int64, error) {
	q := opts.values()
	if entityName != "" {
		q.Set("entityName", entityName)
	}

	var events []*model.AuditEvent
	resp, err := c.do(ctx, http.MethodGet, "/management/audits", q, "", nil)
	if err != nil {
		return nil, 0, err
	}
	total, err := decodeList(resp, &events)
	return events, total, err
}

// ListOptions selects one page of a listing.
type ListOptions struct {
	Page int
	Size int
	// Sort holds "property" or "property,desc" values.
	Sort      []string
	IDs       []int64
	PersonIDs []int64
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Size > 0 {
		q.Set("size", strconv.Itoa(o.Size))
	}
	for _, s := range o.Sort {
		q.Add("sort", s)
	}
	if len(o.IDs) > 0 {
		q.Set("id", joinIDs(o.IDs))
	}
	if len(o.PersonIDs) > 0 {
		q.Set("personId", joinIDs(o.PersonIDs))
	}
	return q
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Resource exposes the operations of one entity collection.
type Resource[T any] struct {
	c    *Client
	path string
}

// Create posts a transient entity and returns the stored one.
func (r *Resource[T]) Create(ctx context.Context, entity *T) (*T, error) {
	return r.send(ctx, http.MethodPost, r.path, ContentTypeJSON, entity)
}

// Replace overwrites the entity with the given id.
func (r *Resource[T]) Replace(ctx context.Context, id int64, entity *T) (*T, error) {
	return r.send(ctx, http.MethodPut, r.itemPath(id), ContentTypeJSON, entity)
}

// Patch merges the non-nil fields of patch onto the entity with the given id.
func (r *Resource[T]) Patch(ctx context.Context, id int64, patch *T) (*T, error) {
	return r.send(ctx, http.MethodPatch, r.itemPath(id), ContentTypeMergePatch, patch)
}

// Get fetches one entity.
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	resp, err := r.c.do(ctx, http.MethodGet, r.itemPath(id), nil, "", nil)
	if err != nil {
		return nil, err
	}
	return decodeEntity[T](resp)
}

// Delete removes an entity. Deleting an absent id succeeds.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	resp, err := r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, "", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// List returns one page and the collection size from X-Total-Count.
func (r *Resource[T]) List(ctx context.Context, opts ListOptions) ([]*T, int64, error) {
	resp, err := r.c.do(ctx, http.MethodGet, r.path, opts.values(), "", nil)
	if err != nil {
		return nil, 0, err
	}
	var items []*T
	total, err := decodeList(resp, &items)
	return items, total, err
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

func (r *Resource[T]) send(ctx context.Context, method, path, contentType string, entity *T) (*T, error) {
	body, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	resp, err := r.c.do(ctx, method, path, nil, contentType, body)
	if err != nil {
		return nil, err
	}
	return decodeEntity[T](resp)
}

// do sends a request and turns non-2xx answers into *APIError.
// The caller closes the body of a successful response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte) (*http.Response, error) {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", ContentTypeJSON)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	apiErr := &APIError{}
	// Bodies that are not problems still yield the status.
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(apiErr)
	apiErr.Status = resp.StatusCode
	return nil, apiErr
}

func decodeEntity[T any](resp *http.Response) (*T, error) {
	defer resp.Body.Close()
	var entity T
	if err := json.NewDecoder(resp.Body).Decode(&entity); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &entity, nil
}

func decodeList(resp *http.Response, dst any) (int64, error) {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	total, err := strconv.ParseInt(resp.Header.Get("X-Total-Count"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid X-Total-Count: %w", err)
	}
	return total, nil
}
