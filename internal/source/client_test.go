package source

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

func TestClient_Cases(t *testing.T) {
	t.Parallel()

	cases := make([]map[string]any, 0, 5)
	for i := 1; i <= 5; i++ {
		cases = append(cases, map[string]any{"id": i, "title": "case", "suite_id": 3, "section_id": 7})
	}

	fake, srv := newFakeTestRail(t, map[string]route{"get_cases/1": paged("cases", cases)})

	c := NewClient(srv.URL+"/index.php/", testUser, testKey, WithPageSize(2))
	got, err := c.Cases(context.Background(), 1, testrail.ID(3), nil)
	require.NoError(t, err)

	ids := make([]int, 0, len(got))
	for _, tc := range got {
		ids = append(ids, tc.ID)
	}

	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, ids); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	require.Equal(t, 3, fake.Calls("get_cases/1"))
	require.Equal(t, "3", fake.Query("get_cases/1").Get("suite_id"))
	require.Equal(t, "4", fake.Query("get_cases/1").Get("offset"))
}

func TestClient_BareArray(t *testing.T) {
	t.Parallel()

	_, srv := newFakeTestRail(
		t, map[string]route{
			"get_priorities": static(
				[]map[string]any{
					{"id": 1, "name": "Low", "short_name": "L", "priority": 1},
					{"id": 4, "name": "Critical", "is_default": false},
				},
			),
		},
	)

	got, err := NewClient(srv.URL, testUser, testKey).Priorities(context.Background())
	require.NoError(t, err)

	expected := []testrail.Priority{
		{ID: 1, Name: "Low", ShortName: "L", Priority: 1},
		{ID: 4, Name: "Critical"},
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestClient_RateLimit(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		limited   int
		calls     int
		expectErr bool
	}{
		{name: "test_recovers", limited: 2, calls: 3},
		{name: "test_exhausted", limited: 100, calls: maxRateLimitAttempts, expectErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				var served atomic.Int32
				fake, srv := newFakeTestRail(
					t, map[string]route{
						"get_case_types": func(url.Values) (int, any) {
							if served.Add(1) <= int32(tc.limited) {
								return http.StatusTooManyRequests, map[string]string{"error": "API rate limit exceeded"}
							}
							return http.StatusOK, []map[string]any{{"id": 1, "name": "Functional"}}
						},
					},
				)

				c := NewClient(srv.URL, testUser, testKey, WithRateLimitDelay(time.Millisecond))
				got, err := c.CaseTypes(context.Background())

				require.Equal(t, tc.calls, fake.Calls("get_case_types"))

				if tc.expectErr {
					var apiErr *APIError
					require.True(t, errors.As(err, &apiErr))
					require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
					return
				}

				require.NoError(t, err)
				require.Equal(t, []testrail.CaseType{{ID: 1, Name: "Functional"}}, got)
			},
		)
	}
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	_, srv := newFakeTestRail(
		t, map[string]route{
			"get_suites/9": func(url.Values) (int, any) {
				return http.StatusForbidden, map[string]string{"error": "no access to project"}
			},
		},
	)

	_, err := NewClient(srv.URL, testUser, testKey).Suites(context.Background(), 9)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, &APIError{Endpoint: "get_suites/9", StatusCode: http.StatusForbidden, Message: "no access to project"}, apiErr)
}

func TestClient_Unauthorized(t *testing.T) {
	t.Parallel()

	_, srv := newFakeTestRail(t, map[string]route{"get_projects": static([]any{})})

	_, err := NewClient(srv.URL, testUser, "wrong").Projects(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_TransportRetry(t *testing.T) {
	t.Parallel()

	_, srv := newFakeTestRail(t, map[string]route{})
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, testUser, testKey, WithRetryBackoff(time.Millisecond)).Projects(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 3 attempts")
}

func TestClient_ContextCanceled(t *testing.T) {
	t.Parallel()

	_, srv := newFakeTestRail(
		t, map[string]route{
			"get_priorities": func(url.Values) (int, any) {
				return http.StatusTooManyRequests, nil
			},
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, testUser, testKey, WithRateLimitDelay(time.Hour)).Priorities(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAPIBase(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{input: "https://tr.example.com", expected: "https://tr.example.com/index.php?/api/v2/"},
		{input: "https://tr.example.com/", expected: "https://tr.example.com/index.php?/api/v2/"},
		{input: "https://tr.example.com/index.php", expected: "https://tr.example.com/index.php?/api/v2/"},
		{input: " https://tr.example.com/testrail/index.php/ ", expected: "https://tr.example.com/testrail/index.php?/api/v2/"},
	}

	for _, tc := range testCases {
		if got := apiBase(tc.input); got != tc.expected {
			t.Errorf("apiBase(%q) got: %s, expected: %s", tc.input, got, tc.expected)
		}
	}
}
