package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/smartstudy/studycli/internal/client/models"
	"github.com/smartstudy/studycli/internal/common"
	"github.com/smartstudy/studycli/internal/logging"
)

// HTTPClient is the resty-backed implementation of Client.
type HTTPClient struct {
	rc  *resty.Client
	log logging.Logger
}

// NewHTTPClient builds a client for the backend at baseURL. Every
// outbound request is stamped with a fresh X-Request-Id.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader(common.RequestIDHeaderName, uuid.NewString())
		return nil
	})

	return &HTTPClient{rc: rc, log: log}
}

// authorization renders the provider-appropriate Authorization value:
// the primary provider uses DRF token auth, the alternate provider is a
// plain bearer token.
func authorization(cred models.Credential) string {
	if cred.Provider == models.ProviderAlternate {
		return "Bearer " + cred.Token
	}
	return "Token " + cred.Token
}

// authPayload is the union of everything the auth endpoints may return.
type authPayload struct {
	models.AuthResult
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (p authPayload) errorMessage() string {
	if p.Error != "" {
		return p.Error
	}
	return p.Detail
}

// authPost runs one credential/token operation and classifies the
// response: pending verification and token+user are results, a server
// error field becomes *Error, anything unparseable is ErrUnavailable.
func (c *HTTPClient) authPost(ctx context.Context, path string, body any) (*models.AuthResult, error) {
	resp, err := c.rc.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return nil, unavailable("%s: %v", path, err)
	}

	var p authPayload
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return nil, unavailable("%s: malformed response (status %d)", path, resp.StatusCode())
	}

	switch {
	case p.RequiresVerification:
		return &models.AuthResult{RequiresVerification: true, Email: p.Email, Message: p.Message}, nil
	case p.Token != "" && p.User != nil:
		return &models.AuthResult{Token: p.Token, User: p.User, Message: p.Message}, nil
	}

	if msg := p.errorMessage(); msg != "" {
		return nil, &Error{Status: resp.StatusCode(), Message: msg}
	}
	if !resp.IsSuccess() {
		return nil, &Error{Status: resp.StatusCode(), Message: statusMessage(resp.StatusCode())}
	}
	// 2xx without a token, e.g. "email already verified".
	return &models.AuthResult{Message: p.Message}, nil
}

type messagePayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

// messagePost runs an operation whose only interesting success output is
// a human-readable message (resend, forgot, reset).
func (c *HTTPClient) messagePost(ctx context.Context, path string, body any) (string, error) {
	resp, err := c.rc.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return "", unavailable("%s: %v", path, err)
	}

	var p messagePayload
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &p); err != nil {
			return "", unavailable("%s: malformed response (status %d)", path, resp.StatusCode())
		}
	}
	if resp.IsSuccess() {
		return p.Message, nil
	}

	msg := p.Error
	if msg == "" {
		msg = p.Detail
	}
	if msg == "" {
		msg = statusMessage(resp.StatusCode())
	}
	return "", &Error{Status: resp.StatusCode(), Message: msg}
}

// do runs an authenticated JSON request and decodes a 2xx body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, cred models.Credential, body, out any) error {
	req := c.rc.R().SetContext(ctx).SetHeader("Authorization", authorization(cred))
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return unavailable("%s: %v", path, err)
	}
	if !resp.IsSuccess() {
		return errorFrom(path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return unavailable("%s: malformed response", path)
	}
	return nil
}

func errorFrom(path string, resp *resty.Response) error {
	var p messagePayload
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return unavailable("%s: status %d", path, resp.StatusCode())
	}
	msg := p.Error
	if msg == "" {
		msg = p.Detail
	}
	if msg == "" {
		msg = statusMessage(resp.StatusCode())
	}
	return &Error{Status: resp.StatusCode(), Message: msg}
}

func statusMessage(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("request failed: %s", text)
	}
	return fmt.Sprintf("request failed with status %d", code)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	return c.authPost(ctx, "/api/auth/login/", map[string]string{
		"username": username,
		"password": password,
	})
}

func (c *HTTPClient) Register(ctx context.Context, username, email, password string) (*models.AuthResult, error) {
	return c.authPost(ctx, "/api/auth/register/", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

func (c *HTTPClient) VerifyEmail(ctx context.Context, token string) (*models.AuthResult, error) {
	return c.authPost(ctx, "/api/auth/verify_email/", map[string]string{"token": token})
}

func (c *HTTPClient) ResendVerification(ctx context.Context, email string) (string, error) {
	return c.messagePost(ctx, "/api/auth/resend_verification/", map[string]string{"email": email})
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.messagePost(ctx, "/api/auth/forgot_password/", map[string]string{"email": email})
}

func (c *HTTPClient) ResetPassword(ctx context.Context, token, password string) (string, error) {
	return c.messagePost(ctx, "/api/auth/reset_password/", map[string]string{
		"token":    token,
		"password": password,
	})
}

func (c *HTTPClient) Profile(ctx context.Context, cred models.Credential) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, resty.MethodGet, "/api/auth/profile/", cred, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) UpdateAPIKey(ctx context.Context, cred models.Credential, apiKey string) error {
	return c.do(ctx, resty.MethodPost, "/api/auth/update_api_key/", cred,
		map[string]string{"api_key": apiKey}, nil)
}

func (c *HTTPClient) ListSubjects(ctx context.Context, cred models.Credential) ([]models.SubjectOverview, error) {
	var subjects []models.SubjectOverview
	if err := c.do(ctx, resty.MethodGet, "/api/subjects/", cred, nil, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (c *HTTPClient) GetSubject(ctx context.Context, cred models.Credential, id int) (*models.Subject, error) {
	var s models.Subject
	path := "/api/subjects/" + strconv.Itoa(id) + "/"
	if err := c.do(ctx, resty.MethodGet, path, cred, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) UploadSyllabus(ctx context.Context, cred models.Credential, subjectName, syllabusText string) (*models.Subject, error) {
	var s models.Subject
	err := c.do(ctx, resty.MethodPost, "/api/subjects/upload_syllabus/", cred, map[string]string{
		"subject_name":  subjectName,
		"syllabus_text": syllabusText,
	}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) NoteByTopic(ctx context.Context, cred models.Credential, topicID int) (*models.Note, error) {
	var n models.Note
	path := "/api/notes/by_topic/?topic_id=" + strconv.Itoa(topicID)
	if err := c.do(ctx, resty.MethodGet, path, cred, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *HTTPClient) FlashcardsByTopic(ctx context.Context, cred models.Credential, topicID int) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	path := "/api/flashcards/by_topic/?topic_id=" + strconv.Itoa(topicID)
	if err := c.do(ctx, resty.MethodGet, path, cred, nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *HTTPClient) ReviewFlashcard(ctx context.Context, cred models.Credential, flashcardID, quality int) error {
	path := "/api/flashcards/" + strconv.Itoa(flashcardID) + "/review/"
	return c.do(ctx, resty.MethodPost, path, cred, map[string]int{"quality": quality}, nil)
}

func (c *HTTPClient) MCQsByTopic(ctx context.Context, cred models.Credential, topicID int, quizMode bool) ([]models.MCQ, error) {
	var mcqs []models.MCQ
	path := "/api/mcqs/by_topic/?topic_id=" + strconv.Itoa(topicID)
	if quizMode {
		path += "&quiz_mode=true"
	}
	if err := c.do(ctx, resty.MethodGet, path, cred, nil, &mcqs); err != nil {
		return nil, err
	}
	return mcqs, nil
}

func (c *HTTPClient) SubmitMCQAnswer(ctx context.Context, cred models.Credential, mcqID int, option string) (*models.MCQAnswer, error) {
	var a models.MCQAnswer
	path := "/api/mcqs/" + strconv.Itoa(mcqID) + "/submit_answer/"
	err := c.do(ctx, resty.MethodPost, path, cred, map[string]string{
		"selected_option": strings.ToLower(option),
	}, &a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTPClient) Chat(ctx context.Context, cred models.Credential, topicID int, message string) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := c.do(ctx, resty.MethodPost, "/api/chat/", cred, map[string]any{
		"topic_id": topicID,
		"message":  message,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) RecordActivity(ctx context.Context, cred models.Credential, topicID int, activityType string, durationSeconds int) error {
	return c.do(ctx, resty.MethodPost, "/api/progress/update_activity/", cred, map[string]any{
		"topic_id":      topicID,
		"activity_type": activityType,
		"duration":      durationSeconds,
	}, nil)
}
