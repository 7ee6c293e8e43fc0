// Command bloggerctl manages people and articles on a running blogger server.
//
//	bloggerctl [--base-url URL] [--page N] [--size N] [--sort S] people|articles <command> [id] [json]
//	bloggerctl [--base-url URL] audits [person|article]
//
// Commands: list, get ID, create JSON, replace ID JSON, patch ID JSON, delete ID.
// A JSON argument of "-" is read from stdin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/juju/gnuflag"

	"github.com/cheroliv/blogger/internal/client"
	"github.com/cheroliv/blogger/internal/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	baseURL string
	page    int
	size    int
	sort    string
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := gnuflag.NewFlagSet("bloggerctl", gnuflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.baseURL, "base-url", envOr("BLOGGER_URL", "http://localhost:8080"), "server base URL")
	fs.IntVar(&opts.page, "page", 0, "page index for list")
	fs.IntVar(&opts.size, "size", 0, "page size for list")
	fs.StringVar(&opts.sort, "sort", "", "sort for list, e.g. name,desc")

	if err := fs.Parse(true, args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(stderr, "usage: bloggerctl [flags] people|articles|audits [command] [id] [json]")
		return 2
	}

	c, err := client.New(opts.baseURL, nil)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	var out any
	switch rest[0] {
	case "people":
		out, err = dispatch(ctx, c.People, opts, rest[1:], stdin)
	case "articles":
		out, err = dispatch(ctx, c.Articles, opts, rest[1:], stdin)
	case "audits":
		entity := ""
		if len(rest) > 1 {
			entity = rest[1]
		}
		out, err = listAudits(ctx, c, entity, opts)
	default:
		err = fmt.Errorf("unknown resource %q", rest[0])
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			for _, fe := range apiErr.FieldErrors {
				fmt.Fprintf(stderr, "  %s.%s: %s\n", fe.ObjectName, fe.Field, fe.Message)
			}
		}
		return 1
	}

	if out == nil {
		return 0
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

type listing[T any] struct {
	Total int64 `json:"total"`
	Items []*T  `json:"items"`
}

func dispatch[T any](ctx context.Context, r *client.Resource[T], opts options, args []string, stdin io.Reader) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("missing command")
	}

	switch cmd := args[0]; cmd {
	case "list":
		items, total, err := r.List(ctx, listOptions(opts))
		if err != nil {
			return nil, err
		}
		return listing[T]{Total: total, Items: items}, nil
	case "get", "delete":
		id, err := argID(args)
		if err != nil {
			return nil, err
		}
		if cmd == "delete" {
			return nil, r.Delete(ctx, id)
		}
		return r.Get(ctx, id)
	case "create":
		entity, err := argEntity[T](args, 1, stdin)
		if err != nil {
			return nil, err
		}
		return r.Create(ctx, entity)
	case "replace", "patch":
		id, err := argID(args)
		if err != nil {
			return nil, err
		}
		entity, err := argEntity[T](args, 2, stdin)
		if err != nil {
			return nil, err
		}
		if cmd == "patch" {
			return r.Patch(ctx, id, entity)
		}
		return r.Replace(ctx, id, entity)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func listAudits(ctx context.Context, c *client.Client, entity string, opts options) (any, error) {
	events, total, err := c.Audits(ctx, entity, listOptions(opts))
	if err != nil {
		return nil, err
	}
	return listing[model.AuditEvent]{Total: total, Items: events}, nil
}

func listOptions(opts options) client.ListOptions {
	lo := client.ListOptions{Page: opts.page, Size: opts.size}
	if opts.sort != "" {
		lo.Sort = []string{opts.sort}
	}
	return lo
}

func argID(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires an id", args[0])
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[1])
	}
	return id, nil
}

func argEntity[T any](args []string, pos int, stdin io.Reader) (*T, error) {
	if len(args) <= pos {
		return nil, fmt.Errorf("%s requires a JSON body", args[0])
	}

	var src io.Reader = strings.NewReader(args[pos])
	if args[pos] == "-" {
		src = stdin
	}

	var entity T
	if err := json.NewDecoder(src).Decode(&entity); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return &entity, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
