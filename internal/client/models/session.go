package models

// Provider identifies which credential system issued the active token.
type Provider string

const (
	// ProviderPrimary is the backend's own username/password system
	// (opaque DRF session tokens).
	ProviderPrimary Provider = "django"
	// ProviderAlternate is the external bearer-token identity system
	// whose JWTs are pasted in manually.
	ProviderAlternate Provider = "neon"
)

// Credential is what a request needs to authenticate: the provider and
// its token. The Authorization scheme differs per provider.
type Credential struct {
	Provider Provider
	Token    string
}

// Session marks the client as authenticated. At most one provider's
// token is active at a time.
type Session struct {
	Provider Provider
	Token    string
	User     UserSummary
}

// Credential returns the session's credential for API calls.
func (s Session) Credential() Credential {
	return Credential{Provider: s.Provider, Token: s.Token}
}

// AuthResult is the outcome of a login/register/verify call. Exactly one
// of the two shapes is populated: a token plus user record, or a
// pending-verification marker carrying the account email.
type AuthResult struct {
	Token                string       `json:"token"`
	User                 *UserSummary `json:"user"`
	RequiresVerification bool         `json:"requires_verification"`
	Email                string       `json:"email"`
	Message              string       `json:"message"`
}

// Authenticated reports whether the result carries a usable token.
func (r AuthResult) Authenticated() bool {
	return r.Token != "" && r.User != nil
}
