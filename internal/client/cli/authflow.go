package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/smartstudy/studycli/internal/client/auth"
	"github.com/smartstudy/studycli/internal/client/models"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

// authFlow drives the auth machine until the user authenticates or
// quits. It returns the established session and whether to continue.
func (a *App) authFlow(ctx context.Context, launchLink string) (*models.Session, bool) {
	m := a.machine
	m.StartFromLink(ctx, launchLink)
	a.flushAuthOutcome()

	if sess := a.takeAuthenticated(); sess != nil {
		return sess, true
	}

	for {
		view := m.View()
		printlnFn(fmt.Sprintf("[%s] type 'help' for commands", view.Name()))

		cmd, err := getSimpleText(a.reader, "auth", os.Stdout)
		if err != nil {
			return nil, false
		}

		switch cmd {
		case "help":
			a.printAuthHelp(view)

		case "login":
			a.runLogin(ctx)

		case "register":
			switch view.(type) {
			case auth.RegisterView:
				a.runRegister(ctx)
			default:
				m.ShowRegister()
			}

		case "forgot":
			switch view.(type) {
			case auth.ForgotPasswordView:
				a.runForgotPassword(ctx)
			default:
				m.ShowForgotPassword()
			}

		case "submit":
			a.runSubmit(ctx, view)

		case "resend":
			m.ResendVerification(ctx)

		case "token":
			a.runAlternateToken(ctx)

		case "back":
			m.ShowLogin()

		case "exit", "quit":
			printlnFn("Bye!")
			return nil, false

		case "":
			continue

		default:
			printlnFn("Unknown command:", cmd)
			continue
		}

		a.flushAuthOutcome()
		if sess := a.takeAuthenticated(); sess != nil {
			return sess, true
		}
	}
}

func (a *App) printAuthHelp(view auth.View) {
	switch view.(type) {
	case auth.LoginView:
		printlnFn("Available commands: login, register, forgot, token, exit")
	case auth.RegisterView:
		printlnFn("Available commands: register, token, back, exit")
	case auth.VerifyPendingView:
		printlnFn("Available commands: resend, token, back, exit")
	case auth.ForgotPasswordView:
		printlnFn("Available commands: forgot, token, back, exit")
	case auth.ResetPasswordView:
		printlnFn("Available commands: submit, token, back, exit")
	default:
		printlnFn("Available commands: token, back, exit")
	}
}

// runSubmit handles the view-specific "submit" shortcut.
func (a *App) runSubmit(ctx context.Context, view auth.View) {
	switch view.(type) {
	case auth.LoginView:
		a.runLogin(ctx)
	case auth.RegisterView:
		a.runRegister(ctx)
	case auth.ForgotPasswordView:
		a.runForgotPassword(ctx)
	case auth.ResetPasswordView:
		a.runReset(ctx)
	default:
		printlnFn("Nothing to submit here")
	}
}

func (a *App) runLogin(ctx context.Context) {
	if _, ok := a.machine.View().(auth.LoginView); !ok {
		a.machine.ShowLogin()
	}
	username, err := getSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return
	}
	password, err := getPassword(os.Stdout, "Password")
	if err != nil {
		return
	}
	a.machine.SubmitLogin(ctx, username, password)
}

func (a *App) runRegister(ctx context.Context) {
	username, err := getSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return
	}
	email, err := getSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return
	}
	password, err := getPassword(os.Stdout, "Password")
	if err != nil {
		return
	}
	confirm, err := getPassword(os.Stdout, "Confirm password")
	if err != nil {
		return
	}
	a.machine.SubmitRegister(ctx, auth.RegisterForm{
		Username: username,
		Email:    email,
		Password: password,
		Confirm:  confirm,
	})
}

func (a *App) runForgotPassword(ctx context.Context) {
	email, err := getSimpleText(a.reader, "Account email", os.Stdout)
	if err != nil {
		return
	}
	a.machine.SubmitForgotPassword(ctx, email)
}

func (a *App) runReset(ctx context.Context) {
	password, err := getPassword(os.Stdout, "New password")
	if err != nil {
		return
	}
	confirm, err := getPassword(os.Stdout, "Confirm password")
	if err != nil {
		return
	}
	a.machine.SubmitReset(ctx, auth.ResetForm{Password: password, Confirm: confirm})
}

func (a *App) runAlternateToken(ctx context.Context) {
	token, err := getSimpleText(a.reader, "Paste access token", os.Stdout)
	if err != nil || token == "" {
		return
	}
	a.machine.SubmitAlternateToken(ctx, token)
}

// flushAuthOutcome prints the machine's inline messages, mirroring the
// single error-or-success banner of the auth screens.
func (a *App) flushAuthOutcome() {
	if msg := a.machine.ErrorMessage(); msg != "" {
		printlnFn("Error:", msg)
		return
	}
	if msg := a.machine.SuccessMessage(); msg != "" {
		printlnFn(msg)
	}
}

// takeAuthenticated drains the machine's event channel and returns the
// session from the latest Authenticated event, if any.
func (a *App) takeAuthenticated() *models.Session {
	var sess *models.Session
	for {
		select {
		case ev := <-a.machine.Events():
			if authed, ok := ev.(auth.Authenticated); ok {
				s := authed.Session
				sess = &s
			}
		default:
			if sess != nil {
				printlnFn(fmt.Sprintf("Welcome, %s!", sess.User.Username))
			}
			return sess
		}
	}
}
