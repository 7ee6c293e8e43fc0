package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/cheroliv/blogger/internal/handler/dto"
	"github.com/cheroliv/blogger/internal/metrics"
	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/repository/memdb"
	"github.com/cheroliv/blogger/internal/service"
)

const testApp = "bloggerApp"

type testAPI struct {
	server  *httptest.Server
	store   *memdb.Store
	metrics *metrics.InMemoryRecorder
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store, err := memdb.New()
	if err != nil {
		t.Fatalf("memdb.New() error = %v", err)
	}

	rec := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := service.Deps{Metrics: rec, Logger: logger}

	router := NewRouter(RouterConfig{
		Logger:        logger,
		AppName:       testApp,
		Version:       "test",
		IsDevelopment: true,
		People:        service.NewPersonService(store.People(), store, nil, deps),
		Articles:      service.NewArticleService(store.Articles(), store, nil, deps),
		Audits:        store.Audits(),
		Health:        NewHealthHandler("memory", store, nil),
		Metrics:       rec,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testAPI{server: srv, store: store, metrics: rec}
}

func (a *testAPI) do(t *testing.T, method, path, contentType, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func (a *testAPI) createPerson(t *testing.T, body string) *model.Person {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/people", "application/json", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create person: status %d", resp.StatusCode)
	}
	return decode[*model.Person](t, resp)
}

func assertProblem(t *testing.T, resp *http.Response, status int, key string) dto.Problem {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d", resp.StatusCode, status)
	}
	if got := resp.Header.Get("X-bloggerApp-error"); got != "error."+key {
		t.Errorf("X-bloggerApp-error = %q, want error.%s", got, key)
	}
	p := decode[dto.Problem](t, resp)
	if p.ErrorKey != key || p.Message != "error."+key || p.Status != status {
		t.Errorf("problem = %+v, want key %s status %d", p, key, status)
	}
	return p
}

func TestPeople_Create(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/people", "application/json",
		`{"name":"A","username":"u","email":"e","company":"c","website":"w"}`)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "/api/people/1" {
		t.Errorf("Location = %q, want /api/people/1", got)
	}
	if got := resp.Header.Get("X-bloggerApp-alert"); got != "A new person is created with identifier 1" {
		t.Errorf("alert = %q", got)
	}
	if got := resp.Header.Get("X-bloggerApp-params"); got != "1" {
		t.Errorf("params = %q, want 1", got)
	}

	p := decode[*model.Person](t, resp)
	if p.ID == nil || *p.ID != 1 || *p.Name != "A" {
		t.Errorf("created = %+v", p)
	}
}

func TestPeople_CreateWithID(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/people", "application/json", `{"id":5,"name":"A"}`)
	p := assertProblem(t, resp, http.StatusBadRequest, service.ReasonIDExists)
	if p.EntityName != model.PersonEntity {
		t.Errorf("entityName = %q, want person", p.EntityName)
	}
	if got := resp.Header.Get("X-bloggerApp-params"); got != model.PersonEntity {
		t.Errorf("params = %q, want person", got)
	}

	page, _ := api.store.People().FindAll(context.Background(), model.PageRequest{Size: 10}, model.Filter{})
	if page.Total != 0 {
		t.Errorf("storage count = %d, want 0", page.Total)
	}
}

func TestPeople_CreateValidation(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/people", "application/json",
		`{"id":5,"name":"`+strings.Repeat("x", 256)+`"}`)
	p := assertProblem(t, resp, http.StatusBadRequest, "validation")
	if len(p.FieldErrors) != 1 || p.FieldErrors[0].Field != "name" || p.FieldErrors[0].Message != model.CodeSize {
		t.Errorf("fieldErrors = %+v", p.FieldErrors)
	}
	if p.Type != dto.ConstraintViolation {
		t.Errorf("type = %q", p.Type)
	}
}

func TestPeople_MalformedBody(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/people", "application/json", `{"name":`)
	assertProblem(t, resp, http.StatusBadRequest, "invalidjson")
}

func TestPeople_UnsupportedMediaType(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/people", "text/plain", `{"name":"A"}`)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestPeople_Replace(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	created := api.createPerson(t, `{"name":"A","username":"u"}`)
	id := strconv.FormatInt(*created.ID, 10)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		key    string
	}{
		{"missing id", "/api/people/" + id, `{"name":"B"}`, http.StatusBadRequest, service.ReasonIDNull},
		{"mismatch", "/api/people/99", `{"id":` + id + `,"name":"B"}`, http.StatusBadRequest, service.ReasonIDInvalid},
		{"not found", "/api/people/99", `{"id":99,"name":"B"}`, http.StatusBadRequest, service.ReasonIDNotFound},
		{"non-numeric path", "/api/people/abc", `{"id":1}`, http.StatusBadRequest, service.ReasonIDInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(t, http.MethodPut, tt.path, "application/json", tt.body)
			assertProblem(t, resp, tt.status, tt.key)
		})
	}

	resp := api.do(t, http.MethodPut, "/api/people/"+id, "application/json", `{"id":`+id+`,"name":"B"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-bloggerApp-alert"); got != "A person is updated with identifier "+id {
		t.Errorf("alert = %q", got)
	}
	p := decode[*model.Person](t, resp)
	if *p.Name != "B" || p.Username != nil {
		t.Errorf("replaced = %+v, want name B and no username", p)
	}
}

func TestPeople_PartialUpdate(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	created := api.createPerson(t, `{"name":"A","username":"u","email":"e","company":"c","website":"w"}`)
	id := strconv.FormatInt(*created.ID, 10)

	for _, ct := range []string{"application/merge-patch+json", "application/json"} {
		t.Run(ct, func(t *testing.T) {
			resp := api.do(t, http.MethodPatch, "/api/people/"+id, ct, `{"id":`+id+`,"name":"Z","email":null}`)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			p := decode[*model.Person](t, resp)
			if *p.Name != "Z" || *p.Username != "u" || *p.Email != "e" || *p.Company != "c" || *p.Website != "w" {
				t.Errorf("merged = %+v", p)
			}
		})
	}
}

func TestPeople_PatchWithoutID(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.do(t, http.MethodPatch, "/api/people", "application/merge-patch+json", `{"name":"Z"}`)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestPeople_GetAndDelete(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	created := api.createPerson(t, `{"name":"A"}`)
	id := strconv.FormatInt(*created.ID, 10)

	resp := api.do(t, http.MethodGet, "/api/people/"+id, "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if p := decode[*model.Person](t, resp); *p.Name != "A" {
		t.Errorf("get = %+v", p)
	}

	resp = api.do(t, http.MethodDelete, "/api/people/"+id, "", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("X-bloggerApp-alert"); got != "A person is deleted with identifier "+id {
		t.Errorf("alert = %q", got)
	}

	resp = api.do(t, http.MethodGet, "/api/people/"+id, "", "")
	assertProblem(t, resp, http.StatusNotFound, service.ReasonIDNotFound)

	resp = api.do(t, http.MethodDelete, "/api/people/"+id, "", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("second delete status = %d, want 204", resp.StatusCode)
	}
}

func TestPeople_List(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	for _, name := range []string{"c", "a", "b"} {
		api.createPerson(t, `{"name":"`+name+`"}`)
	}

	resp := api.do(t, http.MethodGet, "/api/people?page=0&size=2&sort=name,desc", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(TotalCountHeader); got != "3" {
		t.Errorf("X-Total-Count = %q, want 3", got)
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) || strings.Contains(link, `rel="prev"`) {
		t.Errorf("Link = %q", link)
	}

	people := decode[[]*model.Person](t, resp)
	if len(people) != 2 || *people[0].Name != "c" || *people[1].Name != "b" {
		t.Errorf("unexpected page content")
	}

	resp = api.do(t, http.MethodGet, "/api/people?sort=title", "", "")
	assertProblem(t, resp, http.StatusBadRequest, service.ReasonSortNotAllowed)

	resp = api.do(t, http.MethodGet, "/api/people?size=nope", "", "")
	assertProblem(t, resp, http.StatusBadRequest, "badrequest")

	resp = api.do(t, http.MethodGet, "/api/people?page=461168601842738791&size=20", "", "")
	assertProblem(t, resp, http.StatusBadRequest, "badrequest")
}

func TestPeople_ListEmpty(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.do(t, http.MethodGet, "/api/people", "", "")
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestArticles_Flow(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	author := api.createPerson(t, `{"name":"A"}`)
	other := api.createPerson(t, `{"name":"B"}`)
	authorID := strconv.FormatInt(*author.ID, 10)
	otherID := strconv.FormatInt(*other.ID, 10)

	resp := api.do(t, http.MethodPost, "/api/articles", "application/json", `{"title":"T","content":"C"}`)
	p := assertProblem(t, resp, http.StatusBadRequest, "validation")
	if p.FieldErrors[0].Field != "person" || p.FieldErrors[0].Message != model.CodeNotNull {
		t.Errorf("fieldErrors = %+v", p.FieldErrors)
	}

	resp = api.do(t, http.MethodPost, "/api/articles", "application/json", `{"title":"T","person":{"id":404}}`)
	assertProblem(t, resp, http.StatusBadRequest, service.ReasonPersonNotFound)

	resp = api.do(t, http.MethodPost, "/api/articles", "application/json", `{"title":"T","content":"C","person":{"id":`+authorID+`}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	article := decode[*model.Article](t, resp)
	if article.Person == nil || *article.Person.Name != "A" {
		t.Errorf("article should embed its person: %+v", article.Person)
	}
	articleID := strconv.FormatInt(*article.ID, 10)

	api.do(t, http.MethodPost, "/api/articles", "application/json", `{"title":"U","person":{"id":`+otherID+`}}`)

	resp = api.do(t, http.MethodGet, "/api/articles?personId="+authorID, "", "")
	if got := resp.Header.Get(TotalCountHeader); got != "1" {
		t.Errorf("filtered X-Total-Count = %q, want 1", got)
	}

	resp = api.do(t, http.MethodGet, "/api/articles?personId=x", "", "")
	assertProblem(t, resp, http.StatusBadRequest, "badrequest")

	resp = api.do(t, http.MethodPatch, "/api/articles/"+articleID, "application/merge-patch+json",
		`{"id":`+articleID+`,"content":"C2"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, want 200", resp.StatusCode)
	}
	patched := decode[*model.Article](t, resp)
	if *patched.Title != "T" || *patched.Content != "C2" || *patched.Person.ID != *author.ID {
		t.Errorf("patched = %+v", patched)
	}

	resp = api.do(t, http.MethodDelete, "/api/people/"+authorID, "", "")
	assertProblem(t, resp, http.StatusConflict, service.ReasonInUse)

	resp = api.do(t, http.MethodDelete, "/api/articles/"+articleID, "", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete article status = %d", resp.StatusCode)
	}
	resp = api.do(t, http.MethodDelete, "/api/people/"+authorID, "", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete person status = %d, want 204", resp.StatusCode)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.createPerson(t, `{"name":"A"}`)

	resp := api.do(t, http.MethodGet, "/api/coucou", "", "")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "coucou" {
		t.Errorf("coucou = %d %q", resp.StatusCode, body)
	}

	resp = api.do(t, http.MethodGet, "/readyz", "", "")
	health := decode[HealthResponse](t, resp)
	if health.Checks["memory"] != "ok" || health.Checks["redis"] != "not configured" {
		t.Errorf("readyz checks = %v", health.Checks)
	}

	resp = api.do(t, http.MethodGet, "/metrics", "", "")
	body, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `blogger_entity_mutations_total{entity="person",action="created"} 1`) {
		t.Errorf("metrics missing person created counter:\n%s", body)
	}

	resp = api.do(t, http.MethodGet, "/nowhere", "", "")
	assertProblem(t, resp, http.StatusNotFound, "notfound")
}

func TestManagementAudits(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	ctx := context.Background()

	events := []*model.AuditEvent{
		{EventID: "e1", Action: string(model.AlertCreated), EntityName: model.PersonEntity, EntityID: "1"},
		{EventID: "e2", Action: string(model.AlertUpdated), EntityName: model.PersonEntity, EntityID: "1"},
		{EventID: "e3", Action: string(model.AlertCreated), EntityName: model.ArticleEntity, EntityID: "1"},
	}
	if err := api.store.Audits().BulkInsert(ctx, events); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	resp := api.do(t, http.MethodGet, "/management/audits", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(TotalCountHeader); got != "3" {
		t.Errorf("X-Total-Count = %q, want 3", got)
	}
	got := decode[[]*model.AuditEvent](t, resp)
	if len(got) != 3 || got[0].EventID != "e3" {
		t.Errorf("expected newest first, got %+v", got)
	}

	resp = api.do(t, http.MethodGet, "/management/audits?entityName=person", "", "")
	if got := resp.Header.Get(TotalCountHeader); got != "2" {
		t.Errorf("filtered X-Total-Count = %q, want 2", got)
	}

	resp = api.do(t, http.MethodGet, "/management/audits?sort=name", "", "")
	assertProblem(t, resp, http.StatusBadRequest, service.ReasonSortNotAllowed)
}
