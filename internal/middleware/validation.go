package middleware

import (
	"mime"
	"net/http"
	"slices"
)

// Accepted request media types.
const (
	MediaTypeJSON       = "application/json"
	MediaTypeMergePatch = "application/merge-patch+json"
)

// RequireJSON rejects POST, PUT and PATCH requests whose Content-Type is
// not JSON with 415. PATCH additionally accepts merge-patch documents.
// Requests without a body are left to the handler.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed := allowedMediaTypes(r.Method)
		if allowed == nil || r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || !slices.Contains(allowed, mediaType) {
			writeProblem(w, http.StatusUnsupportedMediaType, "unsupportedmediatype",
				"Content-Type must be one of "+joinQuoted(allowed))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func allowedMediaTypes(method string) []string {
	switch method {
	case http.MethodPost, http.MethodPut:
		return []string{MediaTypeJSON}
	case http.MethodPatch:
		return []string{MediaTypeJSON, MediaTypeMergePatch}
	default:
		return nil
	}
}

func joinQuoted(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += `"` + v + `"`
	}
	return out
}
