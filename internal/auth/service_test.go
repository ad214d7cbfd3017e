package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quill-api/quill/internal/auth"
	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/testing/memstore"
	"github.com/quill-api/quill/internal/users"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) EnqueueWelcome(_ context.Context, email, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return m.err
}

type fixture struct {
	store  *memstore.Users
	tokens *auth.TokenService
	mailer *recordingMailer
	svc    *auth.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.NewUsers()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), "quill", time.Hour)
	mailer := &recordingMailer{}
	accounts := users.NewService(store, hasher, nil, nil)
	return fixture{
		store:  store,
		tokens: tokens,
		mailer: mailer,
		svc:    auth.NewService(accounts, hasher, tokens, mailer, nil),
	}
}

func register(username string) auth.RegisterRequest {
	return auth.RegisterRequest{Username: username, Email: username + "@example.com", Password: "Secret123"}
}

func TestRegisterIssuesTokenForNewAccount(t *testing.T) {
	f := newFixture(t)
	session, err := f.svc.Register(context.Background(), register("alice"))
	require.NoError(t, err)

	id, err := f.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, id)
	assert.False(t, session.Account.IsAdmin)
	assert.True(t, session.Account.IsActive)
	assert.NotEqual(t, "Secret123", session.Account.PasswordHash)
	assert.Equal(t, []string{"alice@example.com"}, f.mailer.sent)
}

func TestRegisterSurvivesMailerFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("queue down")
	_, err := f.svc.Register(context.Background(), register("alice"))
	require.NoError(t, err)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, register("alice"))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, register("alice"))
	require.ErrorIs(t, err, httpx.ErrConflict)
	assert.ErrorIs(t, err, users.ErrUsernameTaken)

	dupEmail := register("alice2")
	dupEmail.Email = "ALICE@example.com"
	_, err = f.svc.Register(ctx, dupEmail)
	assert.ErrorIs(t, err, users.ErrEmailTaken)
	assert.Equal(t, 1, f.store.Count())
}

func TestRegisterConcurrentDuplicatesCreateOneAccount(t *testing.T) {
	f := newFixture(t)
	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), register("racer"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, httpx.ErrConflict):
				conflict++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflict)
	assert.Equal(t, 1, f.store.Count())
}

func TestRegisterValidatesInput(t *testing.T) {
	f := newFixture(t)
	req := register("alice")
	req.Password = "short"
	_, err := f.svc.Register(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrValidation)

	var fe *httpx.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Fields, "password")
}

func TestLoginSucceedsAndStampsLastLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered, err := f.svc.Register(ctx, register("alice"))
	require.NoError(t, err)

	session, err := f.svc.Login(ctx, auth.LoginRequest{Username: "alice", Password: "Secret123"})
	require.NoError(t, err)
	id, err := f.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.Account.ID, id)

	stored, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered, err := f.svc.Register(ctx, register("alice"))
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, auth.LoginRequest{Username: "alice", Password: "Wrong1234"})
	_, unknownUser := f.svc.Login(ctx, auth.LoginRequest{Username: "nobody", Password: "Secret123"})

	require.NoError(t, f.store.SetActive(ctx, registered.Account.ID, false))
	_, inactive := f.svc.Login(ctx, auth.LoginRequest{Username: "alice", Password: "Secret123"})

	for _, err := range []error{wrongPassword, unknownUser, inactive} {
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), err.Error())
	}
}

func TestLoginRequiresFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Login(context.Background(), auth.LoginRequest{Username: "alice"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}
