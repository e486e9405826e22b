// Package api implements the HTTP client for the SmartStudy backend.
// The backend is an external collaborator: paths and payload shapes
// here are its contract and must not drift.
package api

import (
	"context"

	"github.com/smartstudy/studycli/internal/client/models"
)

// Client is the remote API surface the rest of the client builds on.
//
// Auth operations return either an AuthResult (token + user, or a
// pending-verification marker) or an error: *Error for server-reported
// business errors (message verbatim), ErrUnavailable for transport and
// parse failures. Authenticated operations take the session credential
// explicitly; the client itself is stateless.
type Client interface {
	// Auth flow.
	Login(ctx context.Context, username, password string) (*models.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*models.AuthResult, error)
	VerifyEmail(ctx context.Context, token string) (*models.AuthResult, error)
	ResendVerification(ctx context.Context, email string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, password string) (string, error)

	// Account.
	Profile(ctx context.Context, cred models.Credential) (*models.Profile, error)
	UpdateAPIKey(ctx context.Context, cred models.Credential, apiKey string) error

	// Study material.
	ListSubjects(ctx context.Context, cred models.Credential) ([]models.SubjectOverview, error)
	GetSubject(ctx context.Context, cred models.Credential, id int) (*models.Subject, error)
	UploadSyllabus(ctx context.Context, cred models.Credential, subjectName, syllabusText string) (*models.Subject, error)
	NoteByTopic(ctx context.Context, cred models.Credential, topicID int) (*models.Note, error)
	FlashcardsByTopic(ctx context.Context, cred models.Credential, topicID int) ([]models.Flashcard, error)
	ReviewFlashcard(ctx context.Context, cred models.Credential, flashcardID, quality int) error
	MCQsByTopic(ctx context.Context, cred models.Credential, topicID int, quizMode bool) ([]models.MCQ, error)
	SubmitMCQAnswer(ctx context.Context, cred models.Credential, mcqID int, option string) (*models.MCQAnswer, error)
	Chat(ctx context.Context, cred models.Credential, topicID int, message string) (*models.ChatMessage, error)
	RecordActivity(ctx context.Context, cred models.Credential, topicID int, activityType string, durationSeconds int) error
}
