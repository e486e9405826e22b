package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smartstudy/studycli/internal/client/api"
	"github.com/smartstudy/studycli/internal/client/models"
	"github.com/smartstudy/studycli/internal/client/session"
	"github.com/smartstudy/studycli/internal/logging"
)

// Messages shown for whole error classes. Server-reported errors are
// surfaced verbatim instead.
const (
	msgConnectionError = "Unable to connect to the server. Please try again."
	msgTokenRejected   = "Could not validate the access token. Please check it and try again."
	msgSessionSave     = "Could not save your session. Please try again."
	msgForgotFallback  = "If an account exists with this email, you will receive a password reset link."
	msgVerifyFailed    = "Verification failed"
	msgResendFallback  = "Verification email sent!"
	msgResetFallback   = "Password reset successfully! You can now login with your new password."
)

// Redirect delays after a success message, before the flow moves on.
const (
	verifyRedirectDelay = 1500 * time.Millisecond
	resetRedirectDelay  = 2 * time.Second
)

// sleepFn is a test seam for the redirect delays.
var sleepFn = time.Sleep

// Event is published on the machine's event channel.
type Event any

// Authenticated reports that an auth operation produced a usable
// session. The session is already persisted when this is emitted.
type Authenticated struct {
	Session models.Session
}

// Machine is the authentication flow's state: the active view, the
// in-flight flag, and the single error/success message pair. All
// mutation happens on the caller's goroutine; the loading flag
// serializes operations, so a submit while one is outstanding is a
// no-op.
type Machine struct {
	api   api.Client
	store *session.Store
	log   logging.Logger

	view    View
	loading bool
	errMsg  string
	okMsg   string

	verifyDelay time.Duration
	resetDelay  time.Duration

	events chan Event
}

func NewMachine(client api.Client, store *session.Store, log logging.Logger) *Machine {
	return &Machine{
		api:         client,
		store:       store,
		log:         log,
		view:        LoginView{},
		verifyDelay: verifyRedirectDelay,
		resetDelay:  resetRedirectDelay,
		events:      make(chan Event, 4),
	}
}

// View returns the active screen.
func (m *Machine) View() View { return m.view }

// Loading reports whether an operation is in flight.
func (m *Machine) Loading() bool { return m.loading }

// ErrorMessage returns the current inline error, or "".
func (m *Machine) ErrorMessage() string { return m.errMsg }

// SuccessMessage returns the current inline success message, or "".
func (m *Machine) SuccessMessage() string { return m.okMsg }

// Events is the machine's outbound channel. The shell should drain it
// after driving an operation.
func (m *Machine) Events() <-chan Event { return m.events }

// StartFromLink sets the initial view from an optional emailed deep
// link. Landing on the verify-email view dispatches the verification
// request immediately.
func (m *Machine) StartFromLink(ctx context.Context, link string) {
	m.view = ViewFromLink(link)
	if _, ok := m.view.(VerifyEmailView); ok {
		m.VerifyEmail(ctx)
	}
}

// ShowLogin returns to the login screen, clearing any messages and any
// pending-verification state.
func (m *Machine) ShowLogin() { m.setView(LoginView{}) }

// ShowRegister switches to the registration screen.
func (m *Machine) ShowRegister() { m.setView(RegisterView{}) }

// ShowForgotPassword switches to the reset-request screen.
func (m *Machine) ShowForgotPassword() { m.setView(ForgotPasswordView{}) }

func (m *Machine) setView(v View) {
	m.view = v
	m.errMsg = ""
	m.okMsg = ""
}

// begin marks an operation in flight and clears both messages.
func (m *Machine) begin() {
	m.loading = true
	m.errMsg = ""
	m.okMsg = ""
}

func (m *Machine) finish() { m.loading = false }

// fail maps an operation error to the inline message: server-reported
// messages verbatim, everything else the fixed connection-error text.
func (m *Machine) fail(ctx context.Context, err error) {
	if serverErr, ok := api.AsServerError(err); ok {
		m.errMsg = serverErr.Message
		return
	}
	m.log.Warn(ctx, "auth request failed", "view", m.view.Name(), "error", err)
	m.errMsg = msgConnectionError
}

func (m *Machine) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.log.Warn(context.Background(), "event channel full, dropping event")
	}
}

// SubmitLogin posts the credentials. A requires-verification response
// moves to the verify-pending screen; a token response persists the
// session and emits Authenticated.
func (m *Machine) SubmitLogin(ctx context.Context, username, password string) {
	if m.loading {
		return
	}
	m.begin()
	defer m.finish()

	res, err := m.api.Login(ctx, username, password)
	if err != nil {
		m.fail(ctx, err)
		return
	}
	m.handleAuthResult(ctx, res)
}

// SubmitRegister validates the form locally, then posts it. Validation
// failures block submission before any network call.
func (m *Machine) SubmitRegister(ctx context.Context, form RegisterForm) {
	if m.loading {
		return
	}
	if msg := formError(form); msg != "" {
		m.errMsg, m.okMsg = msg, ""
		return
	}
	m.begin()
	defer m.finish()

	res, err := m.api.Register(ctx, form.Username, form.Email, form.Password)
	if err != nil {
		m.fail(ctx, err)
		return
	}
	m.handleAuthResult(ctx, res)
}

// handleAuthResult applies the shared login/register success branching.
func (m *Machine) handleAuthResult(ctx context.Context, res *models.AuthResult) {
	switch {
	case res.RequiresVerification:
		m.view = VerifyPendingView{Email: res.Email}
	case res.Authenticated():
		m.persistPrimary(ctx, res)
	case res.Message != "":
		m.okMsg = res.Message
	default:
		m.errMsg = msgConnectionError
	}
}

// persistPrimary saves a primary-provider session (clearing any
// alternate token) and emits Authenticated.
func (m *Machine) persistPrimary(ctx context.Context, res *models.AuthResult) {
	if err := m.store.ActivatePrimary(ctx, res.Token, *res.User); err != nil {
		m.log.Error(ctx, "persisting session failed", "error", err)
		m.errMsg = msgSessionSave
		return
	}
	m.emit(Authenticated{Session: models.Session{
		Provider: models.ProviderPrimary,
		Token:    res.Token,
		User:     *res.User,
	}})
}

// ResendVerification re-requests the verification email for the pending
// address. Only meaningful on the verify-pending screen.
func (m *Machine) ResendVerification(ctx context.Context) {
	v, ok := m.view.(VerifyPendingView)
	if !ok || m.loading {
		return
	}
	m.begin()
	defer m.finish()

	msg, err := m.api.ResendVerification(ctx, v.Email)
	if err != nil {
		m.fail(ctx, err)
		return
	}
	if msg == "" {
		msg = msgResendFallback
	}
	m.okMsg = msg
}

// VerifyEmail posts the emailed token. On success the session is
// persisted, the success message shown, and after a short delay
// Authenticated is emitted. On failure the view stays so the user can
// go back to login.
func (m *Machine) VerifyEmail(ctx context.Context) {
	v, ok := m.view.(VerifyEmailView)
	if !ok || m.loading {
		return
	}
	m.begin()
	defer m.finish()

	res, err := m.api.VerifyEmail(ctx, v.Token)
	if err != nil {
		m.fail(ctx, err)
		return
	}

	if res.Authenticated() {
		if err := m.store.ActivatePrimary(ctx, res.Token, *res.User); err != nil {
			m.log.Error(ctx, "persisting session failed", "error", err)
			m.errMsg = msgSessionSave
			return
		}
		if res.Message != "" {
			m.okMsg = res.Message
		} else {
			m.okMsg = "Email verified successfully!"
		}
		sleepFn(m.verifyDelay)
		m.emit(Authenticated{Session: models.Session{
			Provider: models.ProviderPrimary,
			Token:    res.Token,
			User:     *res.User,
		}})
		return
	}

	// e.g. "already verified": a message without a token.
	if res.Message != "" {
		m.okMsg = res.Message
		return
	}
	m.errMsg = msgVerifyFailed
}

// SubmitForgotPassword requests a reset email. The shown message never
// reveals whether the account exists.
func (m *Machine) SubmitForgotPassword(ctx context.Context, email string) {
	if m.loading {
		return
	}
	m.begin()
	defer m.finish()

	msg, err := m.api.ForgotPassword(ctx, email)
	if err != nil {
		m.fail(ctx, err)
		return
	}
	if msg == "" {
		msg = msgForgotFallback
	}
	m.okMsg = msg
}

// SubmitReset validates and posts the new password. On success the
// reset token is discarded and, after a short delay, the flow returns
// to the login screen with cleared fields.
func (m *Machine) SubmitReset(ctx context.Context, form ResetForm) {
	v, ok := m.view.(ResetPasswordView)
	if !ok || m.loading {
		return
	}
	if msg := formError(form); msg != "" {
		m.errMsg, m.okMsg = msg, ""
		return
	}
	m.begin()
	defer m.finish()

	msg, err := m.api.ResetPassword(ctx, v.Token, form.Password)
	if err != nil {
		m.fail(ctx, err)
		return
	}
	if msg == "" {
		msg = msgResetFallback
	}
	m.okMsg = msg
	sleepFn(m.resetDelay)
	m.setView(LoginView{})
}

// SubmitAlternateToken is the parallel short-circuit login: persist the
// pasted bearer token, validate it with a profile fetch, and either
// emit Authenticated or roll the persisted credential back. Available
// from every view.
func (m *Machine) SubmitAlternateToken(ctx context.Context, token string) {
	if m.loading {
		return
	}
	m.begin()
	defer m.finish()

	m.logTokenClaims(ctx, token)

	if err := m.store.ActivateAlternate(ctx, token); err != nil {
		m.log.Error(ctx, "persisting alternate token failed", "error", err)
		m.errMsg = msgSessionSave
		return
	}

	cred := models.Credential{Provider: models.ProviderAlternate, Token: token}
	profile, err := m.api.Profile(ctx, cred)
	if err != nil || profile.ID == 0 {
		if rbErr := m.store.ClearAlternate(ctx); rbErr != nil {
			m.log.Error(ctx, "rolling back alternate token failed", "error", rbErr)
		}
		m.log.Warn(ctx, "alternate token rejected", "error", err)
		m.errMsg = msgTokenRejected
		return
	}

	if err := m.store.SaveUser(ctx, profile.UserSummary); err != nil {
		m.log.Error(ctx, "persisting user record failed", "error", err)
		m.errMsg = msgSessionSave
		return
	}

	m.emit(Authenticated{Session: models.Session{
		Provider: models.ProviderAlternate,
		Token:    token,
		User:     profile.UserSummary,
	}})
}

// logTokenClaims peeks at a pasted JWT's claims for diagnostics only.
// The token is never accepted or rejected client-side; the profile
// fetch is the authority.
func (m *Machine) logTokenClaims(ctx context.Context, token string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		m.log.Debug(ctx, "pasted token is not a parseable JWT", "error", err)
		return
	}
	sub, _ := claims.GetSubject()
	exp, _ := claims.GetExpirationTime()
	args := []any{"sub", sub}
	if exp != nil {
		args = append(args, "expires_at", exp.Time)
	}
	m.log.Debug(ctx, "alternate token claims", args...)
}
