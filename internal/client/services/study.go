// Package services contains application services for the SmartStudy
// client. This file defines the study service: the material surface
// (subjects, notes, flashcards, quizzes, chat) and progress reporting.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartstudy/studycli/internal/client/api"
	"github.com/smartstudy/studycli/internal/client/models"
)

// Activity types the progress endpoint understands.
const (
	ActivityNotes     = "notes"
	ActivityMindmap   = "mindmap"
	ActivityFlashcard = "flashcard"
	ActivityTime      = "time"
)

// StudyService is the study-material surface used by the shell.
//
// Contract:
//   - Subjects/Subject: list and load the syllabus tree.
//   - UploadSyllabus: create a subject from pasted syllabus text.
//   - Note: fetch (and server-side generate, if missing) topic notes.
//   - Flashcards/ReviewFlashcard: fetch cards, record a review quality.
//   - Quiz/Answer: fetch questions without answers, submit an option.
//   - Chat: ask the doubt tutor about a topic.
//   - RecordStudyTime / MarkRead: progress reporting.
//
// All methods must honor context cancellation/timeouts.
type StudyService interface {
	Subjects(ctx context.Context, cred models.Credential) ([]models.SubjectOverview, error)
	Subject(ctx context.Context, cred models.Credential, id int) (*models.Subject, error)
	UploadSyllabus(ctx context.Context, cred models.Credential, name, syllabus string) (*models.Subject, error)
	Note(ctx context.Context, cred models.Credential, topicID int) (*models.Note, error)
	Flashcards(ctx context.Context, cred models.Credential, topicID int) ([]models.Flashcard, error)
	ReviewFlashcard(ctx context.Context, cred models.Credential, flashcardID, quality int) error
	Quiz(ctx context.Context, cred models.Credential, topicID int) ([]models.MCQ, error)
	Answer(ctx context.Context, cred models.Credential, mcqID int, option string) (*models.MCQAnswer, error)
	Chat(ctx context.Context, cred models.Credential, topicID int, message string) (*models.ChatMessage, error)
	RecordStudyTime(ctx context.Context, cred models.Credential, topicID, seconds int) error
	MarkRead(ctx context.Context, cred models.Credential, topicID int) error
}

type studyService struct {
	client api.Client
}

// NewStudyService constructs a StudyService bound to the given API client.
func NewStudyService(client api.Client) StudyService {
	return &studyService{client: client}
}

func (s *studyService) Subjects(ctx context.Context, cred models.Credential) ([]models.SubjectOverview, error) {
	return s.client.ListSubjects(ctx, cred)
}

func (s *studyService) Subject(ctx context.Context, cred models.Credential, id int) (*models.Subject, error) {
	return s.client.GetSubject(ctx, cred, id)
}

func (s *studyService) UploadSyllabus(ctx context.Context, cred models.Credential, name, syllabus string) (*models.Subject, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(syllabus) == "" {
		return nil, fmt.Errorf("subject name and syllabus text are required")
	}
	return s.client.UploadSyllabus(ctx, cred, name, syllabus)
}

func (s *studyService) Note(ctx context.Context, cred models.Credential, topicID int) (*models.Note, error) {
	return s.client.NoteByTopic(ctx, cred, topicID)
}

func (s *studyService) Flashcards(ctx context.Context, cred models.Credential, topicID int) ([]models.Flashcard, error) {
	return s.client.FlashcardsByTopic(ctx, cred, topicID)
}

func (s *studyService) ReviewFlashcard(ctx context.Context, cred models.Credential, flashcardID, quality int) error {
	if quality < 0 || quality > 5 {
		return fmt.Errorf("review quality must be between 0 and 5")
	}
	return s.client.ReviewFlashcard(ctx, cred, flashcardID, quality)
}

// Quiz always requests quiz mode so answers are withheld until submitted.
func (s *studyService) Quiz(ctx context.Context, cred models.Credential, topicID int) ([]models.MCQ, error) {
	return s.client.MCQsByTopic(ctx, cred, topicID, true)
}

func (s *studyService) Answer(ctx context.Context, cred models.Credential, mcqID int, option string) (*models.MCQAnswer, error) {
	option = strings.ToLower(strings.TrimSpace(option))
	switch option {
	case "a", "b", "c", "d":
	default:
		return nil, fmt.Errorf("answer must be one of a, b, c, d")
	}
	return s.client.SubmitMCQAnswer(ctx, cred, mcqID, option)
}

func (s *studyService) Chat(ctx context.Context, cred models.Credential, topicID int, message string) (*models.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is required")
	}
	return s.client.Chat(ctx, cred, topicID, message)
}

func (s *studyService) RecordStudyTime(ctx context.Context, cred models.Credential, topicID, seconds int) error {
	return s.client.RecordActivity(ctx, cred, topicID, ActivityTime, seconds)
}

func (s *studyService) MarkRead(ctx context.Context, cred models.Credential, topicID int) error {
	return s.client.RecordActivity(ctx, cred, topicID, ActivityNotes, 0)
}
