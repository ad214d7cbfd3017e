package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-api/quill/internal/app"
	"github.com/quill-api/quill/internal/testing/memstore"
	"github.com/quill-api/quill/internal/testing/testenv"
	"github.com/quill-api/quill/internal/users"
)

type recordingCreator struct {
	requests []users.CreateUserRequest
	failAt   int
}

func (r *recordingCreator) Create(_ context.Context, req users.CreateUserRequest, _ int64) (users.User, error) {
	r.requests = append(r.requests, req)
	if r.failAt > 0 && len(r.requests) == r.failAt {
		return users.User{}, errors.New("boom")
	}
	return users.User{ID: int64(len(r.requests)), Username: req.Username}, nil
}

func TestCreateUsersCommand(t *testing.T) {
	creator := &recordingCreator{}
	n := 0
	stdout := new(bytes.Buffer)
	code := CreateUsersCommand(context.Background(), creator, CreateUsersOptions{
		Count:     3,
		Stdout:    stdout,
		Stderr:    new(bytes.Buffer),
		NewSuffix: func() string { n++; return fmt.Sprintf("n%d", n) },
	})
	require.Equal(t, 0, code)
	require.Len(t, creator.requests, 3)
	assert.Equal(t, "user_n1", creator.requests[0].Username)
	assert.Equal(t, "user_n3@example.com", creator.requests[2].Email)
	assert.Equal(t, "Password123!", creator.requests[0].Password)
	assert.False(t, creator.requests[0].IsAdmin)
	assert.Contains(t, stdout.String(), "3 users created")
}

func TestCreateUsersCommandStopsOnError(t *testing.T) {
	creator := &recordingCreator{failAt: 2}
	stderr := new(bytes.Buffer)
	code := CreateUsersCommand(context.Background(), creator, CreateUsersOptions{Count: 5, Stdout: new(bytes.Buffer), Stderr: stderr})
	assert.Equal(t, 1, code)
	assert.Len(t, creator.requests, 2)
	assert.Contains(t, stderr.String(), "account 2: boom")
}

func TestCreateUsersCommandRejectsBadCount(t *testing.T) {
	stderr := new(bytes.Buffer)
	assert.Equal(t, 1, CreateUsersCommand(context.Background(), &recordingCreator{}, CreateUsersOptions{Stderr: stderr}))
	assert.Contains(t, stderr.String(), "-count must be positive")
}

func TestRoutesCommand(t *testing.T) {
	r := chi.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", noop)
		r.Delete("/{id}", noop)
	})
	r.Get("/healthz", noop)

	out := new(bytes.Buffer)
	require.Equal(t, 0, RoutesCommand(r, out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "GET     /healthz", lines[0])
	assert.Equal(t, "GET     /posts/", lines[1])
	assert.Equal(t, "DELETE  /posts/{id}", lines[2])

	assert.Equal(t, 1, RoutesCommand(http.NotFoundHandler(), new(bytes.Buffer)))
}

func TestRoutesCommandListsEveryMount(t *testing.T) {
	api := app.NewAPI(testenv.Config(), nil, app.Dependencies{
		Accounts: memstore.NewUsers(),
		Posts:    memstore.NewPosts(),
	})
	out := new(bytes.Buffer)
	require.Equal(t, 0, RoutesCommand(api.Handler, out))

	for _, line := range []string{
		"GET     /audit/",
		"GET     /audit/export.csv",
		"GET     /jobs/health",
		"GET     /metrics",
		"GET     /api",
		"GET     /healthz",
		"POST    /auth/login",
		"DELETE  /posts/{id}",
		"PUT     /users/{id}",
	} {
		assert.Contains(t, out.String(), line+"\n")
	}

	// Optional mounts without their dependency answer 503 instead of 404.
	for _, path := range []string{"/jobs/health", "/metrics"} {
		rec := httptest.NewRecorder()
		api.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestResetCommandConfirmation(t *testing.T) {
	cases := []struct {
		name      string
		yes       bool
		input     string
		wantCode  int
		wantReset bool
	}{
		{name: "typed yes", input: "yes\n", wantCode: 0, wantReset: true},
		{name: "typed YES without newline", input: "YES", wantCode: 0, wantReset: true},
		{name: "declined", input: "no\n", wantCode: 1},
		{name: "empty input", input: "", wantCode: 1},
		{name: "flag skips prompt", yes: true, wantCode: 0, wantReset: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			var stdout, stderr bytes.Buffer
			code := ResetCommand(context.Background(), func(context.Context) error {
				called = true
				return nil
			}, ResetOptions{Yes: tc.yes, Stdin: strings.NewReader(tc.input), Stdout: &stdout, Stderr: &stderr})

			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.wantReset, called)
			if tc.wantReset {
				assert.Contains(t, stdout.String(), "database reset")
			} else {
				assert.Contains(t, stdout.String(), "aborted")
			}
			if tc.yes {
				assert.NotContains(t, stdout.String(), "Type 'yes'")
			}
		})
	}
}

func TestResetCommandReportsFailure(t *testing.T) {
	var stderr bytes.Buffer
	code := ResetCommand(context.Background(), func(context.Context) error {
		return errors.New("connection refused")
	}, ResetOptions{Yes: true, Stdout: &bytes.Buffer{}, Stderr: &stderr})

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "connection refused")
}
