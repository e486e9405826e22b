package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// root is the authenticated shell. It returns true when the process
// should exit, false when the user logged out and the auth flow should
// run again.
func (a *App) root(ctx context.Context) bool {
	sess := a.currentSession()
	printlnFn(fmt.Sprintf("Logged in as %s (theme: %s). Type 'help' for commands.", sess.User.Username, a.theme))

	watcherCtx, stopWatcher := context.WithCancel(ctx)
	defer stopWatcher()
	go a.StartActivityWatcher(watcherCtx, a.config.Activity.PingInterval)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("study (%s)> ", sess.User.Username)
		if !scanner.Scan() {
			return true
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: subjects, subject <id>, upload, notes <id>, cards <id>, quiz <id>, chat <id>, profile, apikey, theme <name>, logout, exit")

		case "subjects":
			a.listSubjects(ctx)

		case "subject":
			if id, ok := argID(args, "subject <id>"); ok {
				a.showSubject(ctx, id)
			}

		case "upload":
			a.uploadSyllabus(ctx)

		case "notes":
			if id, ok := argID(args, "notes <topic-id>"); ok {
				a.showNotes(ctx, id)
			}

		case "cards":
			if id, ok := argID(args, "cards <topic-id>"); ok {
				a.reviewFlashcards(ctx, id)
			}

		case "quiz":
			if id, ok := argID(args, "quiz <topic-id>"); ok {
				a.runQuiz(ctx, id)
			}

		case "chat":
			if id, ok := argID(args, "chat <topic-id>"); ok {
				a.chat(ctx, id)
			}

		case "profile":
			a.showProfile(ctx)

		case "apikey":
			a.updateAPIKey(ctx)

		case "theme":
			a.switchTheme(ctx, args)

		case "logout":
			if err := a.store.Clear(ctx); err != nil {
				a.log.Error(ctx, "clearing session failed", "error", err)
			}
			a.setSession(nil)
			a.machine.ShowLogin()
			printlnFn("Logged out.")
			return false

		case "exit", "quit":
			printlnFn("Bye!")
			return true

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func argID(args []string, usage string) (int, bool) {
	if len(args) == 0 {
		printlnFn("Usage:", usage)
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		printlnFn("Expected a numeric id, got:", args[0])
		return 0, false
	}
	return id, true
}

func (a *App) listSubjects(ctx context.Context) {
	subjects, err := a.study.Subjects(ctx, a.credential())
	if err != nil {
		a.printError(err)
		return
	}
	if len(subjects) == 0 {
		printlnFn("No subjects yet. Use 'upload' to create one from a syllabus.")
		return
	}
	for _, s := range subjects {
		printlnFn(fmt.Sprintf("%4d  %-30s %-10s units: %d, topics: %d", s.ID, s.Name, s.Code, s.UnitCount, s.TopicCount))
	}
}

func (a *App) showSubject(ctx context.Context, id int) {
	subject, err := a.study.Subject(ctx, a.credential(), id)
	if err != nil {
		a.printError(err)
		return
	}
	printlnFn(fmt.Sprintf("%s (%s)", subject.Name, subject.Code))
	for _, unit := range subject.Units {
		printlnFn(fmt.Sprintf("  Unit %d: %s", unit.UnitNumber, unit.Name))
		for _, topic := range unit.Topics {
			extras := make([]string, 0, 3)
			if topic.HasNotes {
				extras = append(extras, "notes")
			}
			if topic.FlashcardCount > 0 {
				extras = append(extras, fmt.Sprintf("%d cards", topic.FlashcardCount))
			}
			if topic.MCQCount > 0 {
				extras = append(extras, fmt.Sprintf("%d mcqs", topic.MCQCount))
			}
			printlnFn(fmt.Sprintf("    %4d  %s  [%s]", topic.ID, topic.Name, strings.Join(extras, ", ")))
		}
	}
}

func (a *App) uploadSyllabus(ctx context.Context) {
	name, err := getSimpleText(a.reader, "Subject name", os.Stdout)
	if err != nil {
		return
	}
	syllabus, err := getMultiline(a.reader, "Paste the syllabus text", os.Stdout)
	if err != nil {
		return
	}
	printlnFn("Uploading, this can take a while...")
	subject, err := a.study.UploadSyllabus(ctx, a.credential(), name, syllabus)
	if err != nil {
		a.printError(err)
		return
	}
	printlnFn(fmt.Sprintf("Created subject %d: %s (%d units)", subject.ID, subject.Name, len(subject.Units)))
}

func (a *App) showNotes(ctx context.Context, topicID int) {
	a.setActiveTopic(topicID)
	note, err := a.study.Note(ctx, a.credential(), topicID)
	if err != nil {
		a.printError(err)
		return
	}
	printlnFn("==", note.TopicName, "==")
	printlnFn(note.Summary)
	printlnFn("")
	printlnFn(note.DetailedContent)
	for _, analogy := range note.Analogies {
		printlnFn(" *", analogy)
	}
	if err := a.study.MarkRead(ctx, a.credential(), topicID); err != nil {
		a.log.Debug(ctx, "marking notes read failed", "topic", topicID, "error", err)
	}
}

func (a *App) reviewFlashcards(ctx context.Context, topicID int) {
	a.setActiveTopic(topicID)
	cards, err := a.study.Flashcards(ctx, a.credential(), topicID)
	if err != nil {
		a.printError(err)
		return
	}
	if len(cards) == 0 {
		printlnFn("No flashcards for this topic.")
		return
	}
	for i, card := range cards {
		printlnFn(fmt.Sprintf("Card %d/%d [%s]: %s", i+1, len(cards), card.Difficulty, card.FrontText))
		if _, err := getSimpleText(a.reader, "Press Enter to flip", os.Stdout); err != nil {
			return
		}
		printlnFn("Answer:", card.BackText)
		answer, err := getSimpleText(a.reader, "How well did you know it? 0 (not at all) - 5 (perfectly), or s to skip", os.Stdout)
		if err != nil {
			return
		}
		if answer == "s" || answer == "" {
			continue
		}
		quality, err := strconv.Atoi(answer)
		if err != nil {
			printlnFn("Skipping, expected a number between 0 and 5")
			continue
		}
		if err := a.study.ReviewFlashcard(ctx, a.credential(), card.ID, quality); err != nil {
			a.printError(err)
		}
	}
	printlnFn("Done!")
}

func (a *App) runQuiz(ctx context.Context, topicID int) {
	a.setActiveTopic(topicID)
	questions, err := a.study.Quiz(ctx, a.credential(), topicID)
	if err != nil {
		a.printError(err)
		return
	}
	if len(questions) == 0 {
		printlnFn("No questions for this topic.")
		return
	}

	correct := 0
	for i, q := range questions {
		printlnFn(fmt.Sprintf("Q%d/%d: %s", i+1, len(questions), q.QuestionText))
		printlnFn("  a)", q.OptionA)
		printlnFn("  b)", q.OptionB)
		printlnFn("  c)", q.OptionC)
		printlnFn("  d)", q.OptionD)

		option, err := getSimpleText(a.reader, "Your answer (a-d, or q to stop)", os.Stdout)
		if err != nil || option == "q" {
			break
		}
		verdict, err := a.study.Answer(ctx, a.credential(), q.ID, option)
		if err != nil {
			a.printError(err)
			continue
		}
		if verdict.IsCorrect {
			correct++
			printlnFn("Correct!")
		} else {
			printlnFn(fmt.Sprintf("Wrong, the answer is %s. %s", verdict.CorrectOption, verdict.Explanation))
		}
	}
	printlnFn(fmt.Sprintf("Score: %d/%d", correct, len(questions)))
}

func (a *App) chat(ctx context.Context, topicID int) {
	a.setActiveTopic(topicID)
	for {
		message, err := getMultiline(a.reader, "Ask your doubt (empty message to leave the chat)", os.Stdout)
		if err != nil || message == "" {
			return
		}
		reply, err := a.study.Chat(ctx, a.credential(), topicID, message)
		if err != nil {
			a.printError(err)
			continue
		}
		printlnFn(reply.AIResponse)
	}
}

func (a *App) showProfile(ctx context.Context) {
	profile, err := a.api.Profile(ctx, a.credential())
	if err != nil {
		a.printError(err)
		return
	}
	printlnFn("Username:       ", profile.Username)
	printlnFn("Email:          ", profile.Email)
	if profile.HasAPIKey {
		printlnFn("API key:        ", profile.APIKeyMasked)
	} else {
		printlnFn("API key:         not set (shared quota, daily limit applies)")
		printlnFn("Today's usage:  ", profile.DailyUsage)
	}
	printlnFn("Input tokens:   ", profile.TotalInputTokens)
	printlnFn("Output tokens:  ", profile.TotalOutputTokens)
	printlnFn(fmt.Sprintf("Estimated cost:  $%.4f", profile.EstimatedCost))
}

func (a *App) updateAPIKey(ctx context.Context) {
	key, err := getPassword(os.Stdout, "Gemini API key (empty to remove)")
	if err != nil {
		return
	}
	if err := a.api.UpdateAPIKey(ctx, a.credential(), key); err != nil {
		a.printError(err)
		return
	}
	if key == "" {
		printlnFn("API key removed.")
	} else {
		printlnFn("API key saved.")
	}
}

func (a *App) switchTheme(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Current theme:", a.theme)
		return
	}
	theme := args[0]
	if err := a.store.SetTheme(ctx, theme); err != nil {
		a.log.Error(ctx, "persisting theme failed", "error", err)
		return
	}
	a.theme = theme
	printlnFn("Theme set to", theme)
}

func (a *App) printError(err error) {
	printlnFn("Error:", err.Error())
}
