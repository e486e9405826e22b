// Package models defines the client-side data model: the session and its
// user record, and the study entities returned by the backend API.
package models

// UserSummary is the backend's user record as returned by the auth
// endpoints. It is replaced wholesale on every successful auth operation
// and never partially mutated.
type UserSummary struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Profile extends UserSummary with the account settings the profile
// endpoint reports. The API key itself is never returned, only a mask.
type Profile struct {
	UserSummary
	HasAPIKey         bool    `json:"has_api_key"`
	DailyUsage        int     `json:"daily_usage"`
	APIKeyMasked      string  `json:"api_key_masked,omitempty"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	EstimatedCost     float64 `json:"estimated_cost"`
}
