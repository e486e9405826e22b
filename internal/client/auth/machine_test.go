package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartstudy/studycli/internal/client/api"
	"github.com/smartstudy/studycli/internal/client/models"
	"github.com/smartstudy/studycli/internal/client/session"
	"github.com/smartstudy/studycli/internal/logging"
)

// fakeClient implements the parts of api.Client the machine exercises.
// Unused methods panic via the embedded nil interface.
type fakeClient struct {
	api.Client

	loginFn    func(ctx context.Context, username, password string) (*models.AuthResult, error)
	registerFn func(ctx context.Context, username, email, password string) (*models.AuthResult, error)
	verifyFn   func(ctx context.Context, token string) (*models.AuthResult, error)
	resendFn   func(ctx context.Context, email string) (string, error)
	forgotFn   func(ctx context.Context, email string) (string, error)
	resetFn    func(ctx context.Context, token, password string) (string, error)
	profileFn  func(ctx context.Context, cred models.Credential) (*models.Profile, error)

	loginCalls    int
	registerCalls int
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	f.loginCalls++
	return f.loginFn(ctx, username, password)
}

func (f *fakeClient) Register(ctx context.Context, username, email, password string) (*models.AuthResult, error) {
	f.registerCalls++
	return f.registerFn(ctx, username, email, password)
}

func (f *fakeClient) VerifyEmail(ctx context.Context, token string) (*models.AuthResult, error) {
	return f.verifyFn(ctx, token)
}

func (f *fakeClient) ResendVerification(ctx context.Context, email string) (string, error) {
	return f.resendFn(ctx, email)
}

func (f *fakeClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	return f.forgotFn(ctx, email)
}

func (f *fakeClient) ResetPassword(ctx context.Context, token, password string) (string, error) {
	return f.resetFn(ctx, token, password)
}

func (f *fakeClient) Profile(ctx context.Context, cred models.Credential) (*models.Profile, error) {
	return f.profileFn(ctx, cred)
}

func newTestMachine(t *testing.T, client api.Client) (*Machine, *session.Store) {
	t.Helper()

	store, err := session.Open(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := NewMachine(client, store, logging.NewZapLoggerFrom(zap.NewNop()))
	return m, store
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := sleepFn
	sleepFn = func(time.Duration) {}
	t.Cleanup(func() { sleepFn = orig })
}

func drainAuthenticated(t *testing.T, m *Machine) *models.Session {
	t.Helper()
	select {
	case ev := <-m.Events():
		authed, ok := ev.(Authenticated)
		require.True(t, ok, "unexpected event type %T", ev)
		return &authed.Session
	default:
		return nil
	}
}

func TestSubmitLogin_Success(t *testing.T) {
	user := models.UserSummary{ID: 7, Username: "asha", Email: "asha@example.com"}
	client := &fakeClient{
		loginFn: func(_ context.Context, username, password string) (*models.AuthResult, error) {
			assert.Equal(t, "asha", username)
			assert.Equal(t, "secret123", password)
			return &models.AuthResult{Token: "tok-1", User: &user}, nil
		},
	}
	m, store := newTestMachine(t, client)
	ctx := context.Background()

	m.SubmitLogin(ctx, "asha", "secret123")

	assert.False(t, m.Loading())
	assert.Empty(t, m.ErrorMessage())

	sess := drainAuthenticated(t, m)
	require.NotNil(t, sess)
	assert.Equal(t, models.ProviderPrimary, sess.Provider)
	assert.Equal(t, "tok-1", sess.Token)

	tok, err := store.PrimaryToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	alt, err := store.AlternateToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, alt)

	provider, err := store.Provider(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderPrimary, provider)

	cached, err := store.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, user, *cached)
}

func TestSubmitLogin_RequiresVerification(t *testing.T) {
	client := &fakeClient{
		loginFn: func(context.Context, string, string) (*models.AuthResult, error) {
			return &models.AuthResult{RequiresVerification: true, Email: "asha@example.com"}, nil
		},
	}
	m, _ := newTestMachine(t, client)

	m.SubmitLogin(context.Background(), "asha", "secret123")

	pending, ok := m.View().(VerifyPendingView)
	require.True(t, ok)
	assert.Equal(t, "asha@example.com", pending.Email)
	assert.Nil(t, drainAuthenticated(t, m))
}

func TestSubmitLogin_ServerErrorShownVerbatim(t *testing.T) {
	client := &fakeClient{
		loginFn: func(context.Context, string, string) (*models.AuthResult, error) {
			return nil, &api.Error{Status: 401, Message: "Invalid credentials"}
		},
	}
	m, _ := newTestMachine(t, client)

	m.SubmitLogin(context.Background(), "asha", "wrong")

	assert.Equal(t, "Invalid credentials", m.ErrorMessage())
	assert.Empty(t, m.SuccessMessage())
	assert.IsType(t, LoginView{}, m.View())
}

func TestSubmitLogin_TransportErrorShowsConnectionMessage(t *testing.T) {
	client := &fakeClient{
		loginFn: func(context.Context, string, string) (*models.AuthResult, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	m, _ := newTestMachine(t, client)

	m.SubmitLogin(context.Background(), "asha", "secret123")

	assert.Equal(t, msgConnectionError, m.ErrorMessage())
}

func TestSubmitLogin_ReentrantCallIsNoOp(t *testing.T) {
	var m *Machine
	client := &fakeClient{}
	client.loginFn = func(ctx context.Context, _, _ string) (*models.AuthResult, error) {
		// A second submit while one is in flight must not reach the API.
		m.SubmitLogin(ctx, "asha", "secret123")
		return nil, errors.New("down")
	}
	m, _ = newTestMachine(t, client)

	m.SubmitLogin(context.Background(), "asha", "secret123")

	assert.Equal(t, 1, client.loginCalls)
}

func TestSubmitRegister_ValidationBlocksNetwork(t *testing.T) {
	tests := []struct {
		name    string
		form    RegisterForm
		wantMsg string
	}{
		{
			name:    "password mismatch",
			form:    RegisterForm{Username: "asha", Email: "a@b.c", Password: "secret123", Confirm: "secret124"},
			wantMsg: msgPasswordMismatch,
		},
		{
			name:    "password too short",
			form:    RegisterForm{Username: "asha", Email: "a@b.c", Password: "1234567", Confirm: "1234567"},
			wantMsg: msgPasswordTooShort,
		},
		{
			name:    "missing fields",
			form:    RegisterForm{Password: "secret123", Confirm: "secret123"},
			wantMsg: msgFieldsRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{
				registerFn: func(context.Context, string, string, string) (*models.AuthResult, error) {
					t.Fatal("register must not be called for an invalid form")
					return nil, nil
				},
			}
			m, _ := newTestMachine(t, client)

			m.SubmitRegister(context.Background(), tt.form)

			assert.Equal(t, tt.wantMsg, m.ErrorMessage())
			assert.Zero(t, client.registerCalls)
		})
	}
}

func TestSubmitRegister_PendingVerification(t *testing.T) {
	client := &fakeClient{
		registerFn: func(context.Context, string, string, string) (*models.AuthResult, error) {
			return &models.AuthResult{RequiresVerification: true, Email: "new@example.com"}, nil
		},
	}
	m, _ := newTestMachine(t, client)
	m.ShowRegister()

	m.SubmitRegister(context.Background(), RegisterForm{
		Username: "new", Email: "new@example.com", Password: "secret123", Confirm: "secret123",
	})

	pending, ok := m.View().(VerifyPendingView)
	require.True(t, ok)
	assert.Equal(t, "new@example.com", pending.Email)
}

func TestVerifyEmail_SuccessPersistsAndEmits(t *testing.T) {
	noSleep(t)
	user := models.UserSummary{ID: 3, Username: "asha"}
	client := &fakeClient{
		verifyFn: func(_ context.Context, token string) (*models.AuthResult, error) {
			assert.Equal(t, "verify-tok", token)
			return &models.AuthResult{Token: "tok-2", User: &user, Message: "Email verified successfully!"}, nil
		},
	}
	m, store := newTestMachine(t, client)
	ctx := context.Background()

	m.StartFromLink(ctx, "https://app.example.com/verify?token=verify-tok")

	assert.Equal(t, "Email verified successfully!", m.SuccessMessage())

	sess := drainAuthenticated(t, m)
	require.NotNil(t, sess)
	assert.Equal(t, models.ProviderPrimary, sess.Provider)

	tok, err := store.PrimaryToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestVerifyEmail_AlreadyVerifiedMessage(t *testing.T) {
	client := &fakeClient{
		verifyFn: func(context.Context, string) (*models.AuthResult, error) {
			return &models.AuthResult{Message: "Email already verified. Please login."}, nil
		},
	}
	m, _ := newTestMachine(t, client)

	m.StartFromLink(context.Background(), "https://app.example.com/verify?token=old-tok")

	assert.Equal(t, "Email already verified. Please login.", m.SuccessMessage())
	assert.Nil(t, drainAuthenticated(t, m))
}

func TestResendVerification_OnlyOnPendingView(t *testing.T) {
	called := false
	client := &fakeClient{
		resendFn: func(_ context.Context, email string) (string, error) {
			called = true
			assert.Equal(t, "asha@example.com", email)
			return "Verification email sent!", nil
		},
	}
	m, _ := newTestMachine(t, client)

	m.ResendVerification(context.Background())
	assert.False(t, called, "resend must be a no-op outside the pending view")

	m.view = VerifyPendingView{Email: "asha@example.com"}
	m.ResendVerification(context.Background())
	assert.True(t, called)
	assert.Equal(t, "Verification email sent!", m.SuccessMessage())
}

func TestSubmitForgotPassword_FixedMessage(t *testing.T) {
	client := &fakeClient{
		forgotFn: func(context.Context, string) (string, error) {
			return msgForgotFallback, nil
		},
	}
	m, _ := newTestMachine(t, client)
	m.ShowForgotPassword()

	m.SubmitForgotPassword(context.Background(), "nobody@example.com")

	assert.Equal(t, msgForgotFallback, m.SuccessMessage())
}

func TestSubmitReset_SuccessReturnsToLogin(t *testing.T) {
	noSleep(t)
	client := &fakeClient{
		resetFn: func(_ context.Context, token, password string) (string, error) {
			assert.Equal(t, "reset-tok", token)
			assert.Equal(t, "newsecret99", password)
			return "", nil
		},
	}
	m, _ := newTestMachine(t, client)
	m.StartFromLink(context.Background(), "https://app.example.com/reset-password?token=reset-tok")
	require.IsType(t, ResetPasswordView{}, m.View())

	m.SubmitReset(context.Background(), ResetForm{Password: "newsecret99", Confirm: "newsecret99"})

	assert.IsType(t, LoginView{}, m.View())
	// setView clears both messages on the way back to login.
	assert.Empty(t, m.SuccessMessage())
	assert.Empty(t, m.ErrorMessage())
}

func TestSubmitReset_ValidationBlocksNetwork(t *testing.T) {
	client := &fakeClient{
		resetFn: func(context.Context, string, string) (string, error) {
			t.Fatal("reset must not be called for an invalid form")
			return "", nil
		},
	}
	m, _ := newTestMachine(t, client)
	m.StartFromLink(context.Background(), "https://app.example.com/reset-password?token=reset-tok")

	m.SubmitReset(context.Background(), ResetForm{Password: "newsecret99", Confirm: "other"})

	assert.Equal(t, msgPasswordMismatch, m.ErrorMessage())
	assert.IsType(t, ResetPasswordView{}, m.View())
}

func TestSubmitAlternateToken_Success(t *testing.T) {
	user := models.UserSummary{ID: 11, Username: "neon-user"}
	client := &fakeClient{
		profileFn: func(_ context.Context, cred models.Credential) (*models.Profile, error) {
			assert.Equal(t, models.ProviderAlternate, cred.Provider)
			assert.Equal(t, "bearer-tok", cred.Token)
			return &models.Profile{UserSummary: user}, nil
		},
	}
	m, store := newTestMachine(t, client)
	ctx := context.Background()

	m.SubmitAlternateToken(ctx, "bearer-tok")

	sess := drainAuthenticated(t, m)
	require.NotNil(t, sess)
	assert.Equal(t, models.ProviderAlternate, sess.Provider)
	assert.Equal(t, user, sess.User)

	alt, err := store.AlternateToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bearer-tok", alt)

	primary, err := store.PrimaryToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, primary)

	cached, err := store.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, user, *cached)
}

func TestSubmitAlternateToken_RejectionRollsBack(t *testing.T) {
	tests := []struct {
		name      string
		profileFn func(context.Context, models.Credential) (*models.Profile, error)
	}{
		{
			name: "profile fetch fails",
			profileFn: func(context.Context, models.Credential) (*models.Profile, error) {
				return nil, &api.Error{Status: 401, Message: "Invalid token"}
			},
		},
		{
			name: "profile has no identifier",
			profileFn: func(context.Context, models.Credential) (*models.Profile, error) {
				return &models.Profile{}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{profileFn: tt.profileFn}
			m, store := newTestMachine(t, client)
			ctx := context.Background()

			m.SubmitAlternateToken(ctx, "bad-tok")

			assert.Equal(t, msgTokenRejected, m.ErrorMessage())
			assert.Nil(t, drainAuthenticated(t, m))

			alt, err := store.AlternateToken(ctx)
			require.NoError(t, err)
			assert.Empty(t, alt, "rejected token must not be retained")

			provider, err := store.Provider(ctx)
			require.NoError(t, err)
			assert.Empty(t, string(provider))
		})
	}
}

func TestViewSwitchClearsMessages(t *testing.T) {
	client := &fakeClient{
		loginFn: func(context.Context, string, string) (*models.AuthResult, error) {
			return nil, &api.Error{Status: 401, Message: "Invalid credentials"}
		},
	}
	m, _ := newTestMachine(t, client)

	m.SubmitLogin(context.Background(), "asha", "wrong")
	require.NotEmpty(t, m.ErrorMessage())

	m.ShowRegister()

	assert.Empty(t, m.ErrorMessage())
	assert.Empty(t, m.SuccessMessage())
	assert.IsType(t, RegisterView{}, m.View())
}
