package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cheroliv/blogger/internal/handler"
	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/repository/memdb"
	"github.com/cheroliv/blogger/internal/service"
)

func newServer(t *testing.T) string {
	t.Helper()

	store, err := memdb.New()
	if err != nil {
		t.Fatalf("memdb.New() error = %v", err)
	}
	deps := service.Deps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	srv := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
		Logger:   deps.Logger,
		AppName:  "bloggerApp",
		People:   service.NewPersonService(store.People(), store, nil, deps),
		Articles: service.NewArticleService(store.Articles(), store, nil, deps),
		Audits:   store.Audits(),
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCmd(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_PeopleCommands(t *testing.T) {
	t.Parallel()

	base := newServer(t)

	code, out, errOut := runCmd(t, "", "--base-url", base, "people", "create", `{"name":"A"}`)
	if code != 0 {
		t.Fatalf("create exit = %d, stderr %q", code, errOut)
	}
	var created model.Person
	if err := json.Unmarshal([]byte(out), &created); err != nil || created.ID == nil {
		t.Fatalf("create output = %q", out)
	}

	code, out, _ = runCmd(t, `{"id":1,"company":"C"}`, "--base-url", base, "people", "patch", "1", "-")
	if code != 0 || !strings.Contains(out, `"company": "C"`) || !strings.Contains(out, `"name": "A"`) {
		t.Errorf("patch exit = %d, output %q", code, out)
	}

	code, out, _ = runCmd(t, "", "people", "list", "--base-url", base, "--sort", "name,desc")
	if code != 0 || !strings.Contains(out, `"total": 1`) {
		t.Errorf("list exit = %d, output %q", code, out)
	}

	code, _, _ = runCmd(t, "", "--base-url", base, "people", "delete", "1")
	if code != 0 {
		t.Errorf("delete exit = %d", code)
	}

	code, _, errOut = runCmd(t, "", "--base-url", base, "people", "get", "1")
	if code != 1 || !strings.Contains(errOut, "idnotfound") {
		t.Errorf("get after delete exit = %d, stderr %q", code, errOut)
	}
}

func TestRun_FieldErrors(t *testing.T) {
	t.Parallel()

	base := newServer(t)

	code, _, errOut := runCmd(t, "", "--base-url", base, "articles", "create", `{"title":"T"}`)
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(errOut, "article.person: NotNull") {
		t.Errorf("stderr = %q, want field error", errOut)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no resource", nil, 2},
		{"unknown flag", []string{"--nope"}, 2},
		{"unknown resource", []string{"--base-url", "http://127.0.0.1:1", "tags", "list"}, 1},
		{"missing command", []string{"--base-url", "http://127.0.0.1:1", "people"}, 1},
		{"bad id", []string{"--base-url", "http://127.0.0.1:1", "people", "get", "x"}, 1},
		{"bad json", []string{"--base-url", "http://127.0.0.1:1", "people", "create", "{"}, 1},
		{"relative url", []string{"--base-url", "localhost", "people", "list"}, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if code, _, _ := runCmd(t, "", tt.args...); code != tt.code {
				t.Errorf("exit = %d, want %d", code, tt.code)
			}
		})
	}
}
