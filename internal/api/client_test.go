package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lachlan2k/school-portal/internal/metrics"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

// fakeAPI answers every request with the handler's envelope and records what it saw
func fakeAPI(t *testing.T, handler func(r *http.Request) (int, any)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	seen := make([]recordedRequest, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
		}

		buff, _ := io.ReadAll(r.Body)
		if len(buff) > 0 {
			_ = json.Unmarshal(buff, &rec.body)
		}
		seen = append(seen, rec)

		status, body := handler(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, &seen
}

func TestWithTokenAttachesBearer(t *testing.T) {
	srv, seen := fakeAPI(t, func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"success": true, "data": []any{}}
	})

	client := New(srv.URL).WithToken("tok-123")
	_, err := client.Classes().List(context.Background(), nil)
	require.NoError(t, err)

	_, err = client.Terms().SetCurrent(context.Background(), "t1")
	require.NoError(t, err)

	require.Len(t, *seen, 2)
	for _, req := range *seen {
		assert.Equal(t, "Bearer tok-123", req.auth)
	}
}

func TestWithoutTokenSendsNoAuthorization(t *testing.T) {
	srv, seen := fakeAPI(t, func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"success": true}
	})

	base := New(srv.URL)
	_ = base.WithToken("tok-123")

	_, err := base.WithToken("").Schools().Get(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	assert.Equal(t, "", (*seen)[0].auth)
}

func TestResourceCRUD(t *testing.T) {
	srv, seen := fakeAPI(t, func(r *http.Request) (int, any) {
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/students" {
				return http.StatusOK, map[string]any{"success": true, "data": []any{
					map[string]any{"id": "1", "firstName": "Ada"},
					map[string]any{"id": "2", "firstName": "Chidi"},
				}}
			}
			return http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": "1"}}
		case http.MethodPost:
			return http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"id": "3", "firstName": "Ngozi"}}
		case http.MethodPut:
			return http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": "3", "firstName": "Ngozi A."}}
		case http.MethodDelete:
			return http.StatusNoContent, nil
		}
		return http.StatusMethodNotAllowed, nil
	})

	students := New(srv.URL).WithToken("tok").Students()
	ctx := context.Background()

	list, err := students.List(ctx, url.Values{"classId": []string{"c1"}})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "Chidi", list[1]["firstName"])

	rec, err := students.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", rec["id"])

	rec, err = students.Create(ctx, Record{"firstName": "Ngozi"})
	require.NoError(t, err)
	assert.Equal(t, "3", rec["id"])

	rec, err = students.Update(ctx, "3", Record{"firstName": "Ngozi A."})
	require.NoError(t, err)
	assert.Equal(t, "Ngozi A.", rec["firstName"])

	require.NoError(t, students.Delete(ctx, "3"))

	require.Len(t, *seen, 5)
	assert.Equal(t, "classId=c1", (*seen)[0].query)
	assert.Equal(t, "/students/1", (*seen)[1].path)
	assert.Equal(t, "Ngozi", (*seen)[2].body["firstName"])
	assert.Equal(t, http.MethodPut, (*seen)[3].method)
	assert.Equal(t, "/students/3", (*seen)[4].path)
}

func TestSubjectJoinPermission(t *testing.T) {
	srv, seen := fakeAPI(t, func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": "math", "allowJoin": false}}
	})

	rec, err := New(srv.URL).WithToken("tok").Subjects().SetJoinPermission(context.Background(), "math", false)
	require.NoError(t, err)
	assert.Equal(t, false, rec["allowJoin"])

	require.Len(t, *seen, 1)
	assert.Equal(t, http.MethodPatch, (*seen)[0].method)
	assert.Equal(t, "/subjects/math/join-permission", (*seen)[0].path)
	assert.Equal(t, false, (*seen)[0].body["allowJoin"])
}

func TestAPIReportedFailure(t *testing.T) {
	srv, _ := fakeAPI(t, func(r *http.Request) (int, any) {
		return http.StatusNotFound, map[string]any{"success": false, "message": "Class not found"}
	})

	_, err := New(srv.URL).WithToken("tok").Classes().Get(context.Background(), "missing")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Class not found", apiErr.Message)
}

func TestAPIFailureWithoutMessage(t *testing.T) {
	srv, _ := fakeAPI(t, func(r *http.Request) (int, any) {
		return http.StatusForbidden, map[string]any{"success": false}
	})

	_, err := New(srv.URL).Teachers().List(context.Background(), nil)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Forbidden", apiErr.Message)
}

func TestNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Classes().List(context.Background(), nil)
	require.Error(t, err)

	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	m := metrics.New()
	_, err := New(srv.URL, WithMetrics(m)).Classes().List(context.Background(), nil)
	assert.Error(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "school_portal_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).Classes().List(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoginReturnsEnvelope(t *testing.T) {
	srv, seen := fakeAPI(t, func(r *http.Request) (int, any) {
		return http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"}
	})

	env, err := New(srv.URL, WithLoginPath("/users/login")).Login(context.Background(), "a@school.test", "pw")
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid credentials", env.Message)

	require.Len(t, *seen, 1)
	assert.Equal(t, "/users/login", (*seen)[0].path)
	assert.Equal(t, "a@school.test", (*seen)[0].body["email"])
	assert.Equal(t, "", (*seen)[0].auth)
}

func TestSummary(t *testing.T) {
	sizes := map[string]int{"/classes": 3, "/students": 40, "/teachers": 5, "/subjects": 9}
	srv, _ := fakeAPI(t, func(r *http.Request) (int, any) {
		items := make([]any, sizes[r.URL.Path])
		for i := range items {
			items[i] = map[string]any{"id": i}
		}
		return http.StatusOK, map[string]any{"success": true, "data": items}
	})

	summary, err := New(srv.URL).WithToken("tok").Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Classes: 3, Students: 40, Teachers: 5, Subjects: 9}, *summary)
}

func TestUnknownResource(t *testing.T) {
	_, ok := New("http://api.local").Resource("grades")
	assert.False(t, ok)

	res, ok := New("http://api.local").Resource("sessions")
	require.True(t, ok)
	assert.Equal(t, "sessions", res.Name())
}

type countingTransport struct {
	calls int
	next  http.RoundTripper
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.calls++
	return t.next.RoundTrip(r)
}

func TestWithHTTPClientSurvivesToken(t *testing.T) {
	srv, seen := fakeAPI(t, func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]any{"success": true, "data": []any{map[string]any{"id": "2024"}}}
	})

	transport := &countingTransport{next: srv.Client().Transport}
	client := New(srv.URL, WithHTTPClient(&http.Client{Transport: transport}))

	list, err := client.WithToken("tok-9").AcademicSessions().List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Equal(t, 1, transport.calls)
	require.Len(t, *seen, 1)
	assert.Equal(t, "/sessions", (*seen)[0].path)
	assert.Equal(t, "Bearer tok-9", (*seen)[0].auth)
}

func TestSummaryKeepsAPIError(t *testing.T) {
	srv, seen := fakeAPI(t, func(r *http.Request) (int, any) {
		if r.URL.Path == "/students" {
			return http.StatusForbidden, map[string]any{"success": false, "message": "Not your school"}
		}
		return http.StatusOK, map[string]any{"success": true, "data": []any{}}
	})

	_, err := New(srv.URL).WithToken("tok").Summary(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't count students")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Not your school", apiErr.Message)

	// classes then students, nothing after the failure
	assert.Len(t, *seen, 2)
}
