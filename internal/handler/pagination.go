package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cheroliv/blogger/internal/model"
)

// TotalCountHeader carries the collection size of a listing.
const TotalCountHeader = "X-Total-Count"

// parsePageRequest reads ?page=0&size=20&sort=name,desc&sort=id.
// Missing values are left zero for the service to default; malformed
// numbers and pages whose offset would overflow are rejected.
func parsePageRequest(r *http.Request) (model.PageRequest, error) {
	q := r.URL.Query()
	var req model.PageRequest

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 0 {
			return req, fmt.Errorf("invalid page %q", v)
		}
		req.Page = page
	}
	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return req, fmt.Errorf("invalid size %q", v)
		}
		req.Size = size
	}
	if req.Page > model.MaxPage(max(req.Size, model.MaxPageSize)) {
		return req, fmt.Errorf("page %d out of range", req.Page)
	}

	req.Sort = parseSort(q["sort"])
	return req, nil
}

// parseSort turns "prop" and "prop,asc|desc" values into sort orders.
func parseSort(values []string) []model.Sort {
	var sorts []model.Sort
	for _, v := range values {
		prop, dir, _ := strings.Cut(v, ",")
		prop = strings.TrimSpace(prop)
		if prop == "" {
			continue
		}
		sorts = append(sorts, model.Sort{
			Property: prop,
			Desc:     strings.EqualFold(strings.TrimSpace(dir), "desc"),
		})
	}
	return sorts
}

// parseIDList reads a comma-separated id list such as "1,2,3".
func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// writePaginationHeaders sets X-Total-Count and a Link header with next,
// prev, last and first relations, in that order. Other query parameters of
// u are preserved.
func writePaginationHeaders[T any](w http.ResponseWriter, u *url.URL, page *model.Page[T]) {
	w.Header().Set(TotalCountHeader, strconv.FormatInt(page.Total, 10))

	lastPage := page.TotalPages() - 1
	if lastPage < 0 {
		lastPage = 0
	}

	links := make([]string, 0, 4)
	if page.Page < lastPage {
		links = append(links, pageLink(u, page.Page+1, page.Size, "next"))
	}
	if page.Page > 0 {
		links = append(links, pageLink(u, page.Page-1, page.Size, "prev"))
	}
	links = append(links,
		pageLink(u, lastPage, page.Size, "last"),
		pageLink(u, 0, page.Size, "first"),
	)

	w.Header().Set("Link", strings.Join(links, ","))
}

func pageLink(u *url.URL, page, size int, rel string) string {
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	target := url.URL{Path: u.Path, RawQuery: q.Encode()}
	return fmt.Sprintf(`<%s>; rel="%s"`, target.String(), rel)
}
