package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cheroliv/blogger/internal/handler"
	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/repository/memdb"
	"github.com/cheroliv/blogger/internal/service"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	store, err := memdb.New()
	if err != nil {
		t.Fatalf("memdb.New() error = %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := service.Deps{Logger: logger}

	srv := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
		Logger:   logger,
		AppName:  "bloggerApp",
		People:   service.NewPersonService(store.People(), store, nil, deps),
		Articles: service.NewArticleService(store.Articles(), store, nil, deps),
		Audits:   store.Audits(),
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", srv.Client())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	t.Parallel()

	if _, err := New("localhost:8080", nil); err == nil {
		t.Error("New() should reject a URL without scheme")
	}
	if _, err := New("/api", nil); err == nil {
		t.Error("New() should reject a URL without host")
	}
}

func TestClient_PersonLifecycle(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.People.Create(ctx, &model.Person{Name: model.StringPtr("A"), Email: model.StringPtr("a@example.com")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == nil {
		t.Fatal("Create() should return the assigned id")
	}
	id := *created.ID

	patched, err := c.People.Patch(ctx, id, &model.Person{ID: &id, Company: model.StringPtr("C")})
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if *patched.Email != "a@example.com" || *patched.Company != "C" {
		t.Errorf("Patch() = %+v", patched)
	}

	replaced, err := c.People.Replace(ctx, id, &model.Person{ID: &id, Name: model.StringPtr("B")})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if replaced.Email != nil {
		t.Errorf("Replace() should clear omitted fields, got email %q", *replaced.Email)
	}

	got, err := c.People.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *got.Name != "B" {
		t.Errorf("Get() name = %q, want B", *got.Name)
	}

	if err := c.People.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = c.People.Get(ctx, id)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Get() after delete error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.ErrorKey != service.ReasonIDNotFound {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_ArticlesAndListing(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	ctx := context.Background()

	author, err := c.People.Create(ctx, &model.Person{Name: model.StringPtr("A")})
	if err != nil {
		t.Fatalf("Create(person) error = %v", err)
	}

	_, err = c.Articles.Create(ctx, &model.Article{Title: model.StringPtr("T")})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || len(apiErr.FieldErrors) != 1 || apiErr.FieldErrors[0].Field != "person" {
		t.Fatalf("Create(article without person) error = %v", err)
	}

	for _, title := range []string{"one", "two", "three"} {
		if _, err := c.Articles.Create(ctx, &model.Article{Title: model.StringPtr(title), Person: &model.Person{ID: author.ID}}); err != nil {
			t.Fatalf("Create(article) error = %v", err)
		}
	}

	items, total, err := c.Articles.List(ctx, ListOptions{Size: 2, Sort: []string{"title,desc"}, PersonIDs: []int64{*author.ID}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(items) != 2 || *items[0].Title != "two" {
		t.Errorf("List() = %d items, total %d", len(items), total)
	}

	err = c.People.Delete(ctx, *author.ID)
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Errorf("Delete(referenced person) error = %v, want 409", err)
	}

	greeting, err := c.Coucou(ctx)
	if err != nil || greeting != "coucou" {
		t.Errorf("Coucou() = %q, %v", greeting, err)
	}

	events, total, err := c.Audits(ctx, model.PersonEntity, ListOptions{})
	if err != nil {
		t.Fatalf("Audits() error = %v", err)
	}
	if total != 0 || len(events) != 0 {
		t.Errorf("Audits() without a worker = %d events", total)
	}
}

func TestClient_NonProblemError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.People.Get(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("Get() error = %v, want 502 APIError", err)
	}
	if apiErr.Error() != "blogger api: status 502" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestListOptions_Values(t *testing.T) {
	t.Parallel()

	q := ListOptions{Page: 2, Size: 5, Sort: []string{"name", "id,desc"}, IDs: []int64{1, 2}}.values()
	if got := q.Encode(); got != "id=1%2C2&page=2&size=5&sort=name&sort=id%2Cdesc" {
		t.Errorf("values() = %q", got)
	}
}
