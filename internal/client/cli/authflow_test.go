package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartstudy/studycli/internal/client/api"
	"github.com/smartstudy/studycli/internal/client/auth"
	"github.com/smartstudy/studycli/internal/client/models"
	"github.com/smartstudy/studycli/internal/client/session"
	"github.com/smartstudy/studycli/internal/logging"
)

// authFakeClient stubs the auth endpoints; unused methods panic via the
// embedded nil interface.
type authFakeClient struct {
	api.Client

	loginFn func(ctx context.Context, username, password string) (*models.AuthResult, error)
}

func (f *authFakeClient) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	return f.loginFn(ctx, username, password)
}

// scriptInput replaces the interactive input seams with queued answers
// and captures everything printed.
type scriptInput struct {
	answers []string
	printed []string
}

func (s *scriptInput) next() (string, error) {
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func (s *scriptInput) install(t *testing.T) {
	t.Helper()

	origText, origPassword, origPrintln := getSimpleText, getPassword, printlnFn
	t.Cleanup(func() {
		getSimpleText, getPassword, printlnFn = origText, origPassword, origPrintln
	})

	getSimpleText = func(*bufio.Reader, string, io.Writer) (string, error) {
		return s.next()
	}
	getPassword = func(io.Writer, string) (string, error) {
		return s.next()
	}
	printlnFn = func(args ...any) (int, error) {
		s.printed = append(s.printed, fmt.Sprintln(args...))
		return 0, nil
	}
}

func (s *scriptInput) output() string {
	return strings.Join(s.printed, "")
}

func newTestApp(t *testing.T, client api.Client) *App {
	t.Helper()

	store, err := session.Open(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := logging.NewZapLoggerFrom(zap.NewNop())
	return &App{
		log:     log,
		api:     client,
		store:   store,
		machine: auth.NewMachine(client, store, log),
		reader:  bufio.NewReader(strings.NewReader("")),
	}
}

func TestAuthFlow_LoginAuthenticates(t *testing.T) {
	user := models.UserSummary{ID: 7, Username: "asha"}
	client := &authFakeClient{
		loginFn: func(_ context.Context, username, password string) (*models.AuthResult, error) {
			assert.Equal(t, "asha", username)
			assert.Equal(t, "secret123", password)
			return &models.AuthResult{Token: "tok-1", User: &user}, nil
		},
	}
	app := newTestApp(t, client)

	script := &scriptInput{answers: []string{"login", "asha", "secret123"}}
	script.install(t)

	sess, ok := app.authFlow(context.Background(), "")

	require.True(t, ok)
	require.NotNil(t, sess)
	assert.Equal(t, models.ProviderPrimary, sess.Provider)
	assert.Equal(t, "asha", sess.User.Username)
	assert.Contains(t, script.output(), "Welcome, asha!")
}

func TestAuthFlow_FailedLoginShowsErrorThenExit(t *testing.T) {
	client := &authFakeClient{
		loginFn: func(context.Context, string, string) (*models.AuthResult, error) {
			return nil, &api.Error{Status: 401, Message: "Invalid credentials"}
		},
	}
	app := newTestApp(t, client)

	script := &scriptInput{answers: []string{"login", "asha", "wrong", "exit"}}
	script.install(t)

	sess, ok := app.authFlow(context.Background(), "")

	assert.False(t, ok)
	assert.Nil(t, sess)
	assert.Contains(t, script.output(), "Invalid credentials")
}

func TestAuthFlow_UnknownCommand(t *testing.T) {
	app := newTestApp(t, &authFakeClient{})

	script := &scriptInput{answers: []string{"frobnicate", "exit"}}
	script.install(t)

	_, ok := app.authFlow(context.Background(), "")

	assert.False(t, ok)
	assert.Contains(t, script.output(), "Unknown command: frobnicate")
}

func TestAuthFlow_EOFQuits(t *testing.T) {
	app := newTestApp(t, &authFakeClient{})

	script := &scriptInput{}
	script.install(t)

	sess, ok := app.authFlow(context.Background(), "")

	assert.False(t, ok)
	assert.Nil(t, sess)
}

func TestAuthFlow_RegisterSwitchesView(t *testing.T) {
	app := newTestApp(t, &authFakeClient{})

	script := &scriptInput{answers: []string{"register", "exit"}}
	script.install(t)

	_, ok := app.authFlow(context.Background(), "")

	assert.False(t, ok)
	assert.Contains(t, script.output(), "[register]")
}
