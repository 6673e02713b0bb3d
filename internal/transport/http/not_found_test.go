package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotFoundHandler(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/missing", "/slots/extra", "/admin"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		NotFoundHandler().ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", path, rec.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: decode response: %v", path, err)
		}
		if resp.Code != codeNotFound {
			t.Fatalf("%s: expected code %s, got %s", path, codeNotFound, resp.Code)
		}
	}
}
