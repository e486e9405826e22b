// Package auth drives the authentication flow: which screen is active,
// the credential and token operations against the backend, and the
// session writes they imply. The surrounding shell only renders the
// current view and forwards user input; successful authentication is
// published on the machine's event channel.
package auth

import (
	"net/url"
	"strings"
)

// View is the currently active authentication screen. Exactly one view
// is active at a time; views that need data carry it as a payload, so
// contradictory combinations (an email while on the login screen)
// cannot be represented.
type View interface {
	// Name is the screen's stable identifier, used for prompts and logs.
	Name() string
}

// LoginView is the default screen: username/password credentials.
type LoginView struct{}

// RegisterView collects a new account's username, email and password.
type RegisterView struct{}

// VerifyPendingView is shown after the backend signals that the account
// still needs email verification. Email is the address the verification
// mail went to.
type VerifyPendingView struct {
	Email string
}

// VerifyEmailView verifies an emailed token. Entering this view
// dispatches the verification request immediately.
type VerifyEmailView struct {
	Token string
}

// ForgotPasswordView requests a password-reset email.
type ForgotPasswordView struct{}

// ResetPasswordView sets a new password using the reset token from an
// emailed link. The token lives only as this view's payload and is
// discarded when the flow leaves the view.
type ResetPasswordView struct {
	Token string
}

func (LoginView) Name() string          { return "login" }
func (RegisterView) Name() string       { return "register" }
func (VerifyPendingView) Name() string  { return "verify-pending" }
func (VerifyEmailView) Name() string    { return "verify-email" }
func (ForgotPasswordView) Name() string { return "forgot-password" }
func (ResetPasswordView) Name() string  { return "reset-password" }

// ViewFromLink maps an emailed deep link to the initial view. A token
// parameter combined with either type=reset or a reset-password path
// segment selects the reset screen; a bare token parameter selects
// email verification. Both reset signals are honored because the
// backend has emitted links of both shapes.
func ViewFromLink(link string) View {
	if link == "" {
		return LoginView{}
	}
	u, err := url.Parse(link)
	if err != nil {
		return LoginView{}
	}

	token := u.Query().Get("token")
	if token == "" {
		return LoginView{}
	}

	if u.Query().Get("type") == "reset" || strings.Contains(u.Path, "reset-password") {
		return ResetPasswordView{Token: token}
	}
	return VerifyEmailView{Token: token}
}
