package source

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	testUser = "user@example.com"
	testKey  = "secret"
)

type route func(q url.Values) (int, any)

// fakeTestRail serves index.php?/api/v2/<endpoint>&k=v requests from a route table.
type fakeTestRail struct {
	mu      sync.Mutex
	calls   map[string]int
	queries map[string]url.Values
	routes  map[string]route
}

func newFakeTestRail(t *testing.T, routes map[string]route) (*fakeTestRail, *httptest.Server) {
	t.Helper()

	f := &fakeTestRail{
		calls:   make(map[string]int),
		queries: make(map[string]url.Values),
		routes:  routes,
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return f, srv
}

func (f *fakeTestRail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, key, ok := r.BasicAuth()
	if !ok || user != testUser || key != testKey {
		writeJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "authentication failed"})
		return
	}

	if r.URL.Path != "/index.php" || !strings.HasPrefix(r.URL.RawQuery, "/api/v2/") {
		writeJSONResponse(w, http.StatusNotFound, map[string]string{"error": "unknown path"})
		return
	}

	endpoint, rest, _ := strings.Cut(strings.TrimPrefix(r.URL.RawQuery, "/api/v2/"), "&")
	q, _ := url.ParseQuery(rest)

	f.mu.Lock()
	f.calls[endpoint]++
	f.queries[endpoint] = q
	handler, ok := f.routes[endpoint]
	f.mu.Unlock()

	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "unknown endpoint " + endpoint})
		return
	}

	status, body := handler(q)
	writeJSONResponse(w, status, body)
}

func (f *fakeTestRail) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[endpoint]
}

// Query returns the parameters of the last request to endpoint.
func (f *fakeTestRail) Query(endpoint string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.queries[endpoint]
}

func writeJSONResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(body)
}

func static(body any) route {
	return func(url.Values) (int, any) {
		return http.StatusOK, body
	}
}

// paged serves items the way paginated endpoints do, wrapped under key.
func paged(key string, items []map[string]any) route {
	return func(q url.Values) (int, any) {
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit == 0 {
			limit = len(items)
		}

		end := offset + limit
		if end > len(items) {
			end = len(items)
		}
		if offset > end {
			offset = end
		}

		return http.StatusOK, map[string]any{
			"offset": offset,
			"limit":  limit,
			"size":   end - offset,
			key:      items[offset:end],
		}
	}
}
