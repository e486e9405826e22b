package models

// SubjectOverview is the lightweight subject shape used in listings.
type SubjectOverview struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	UnitCount   int    `json:"unit_count"`
	TopicCount  int    `json:"topic_count"`
}

// Subject is the full subject tree: units with their topics.
type Subject struct {
	SubjectOverview
	Units []Unit `json:"units"`
}

type Unit struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	UnitNumber  int     `json:"unit_number"`
	Description string  `json:"description"`
	Topics      []Topic `json:"topics"`
	TopicCount  int     `json:"topic_count"`
}

type Topic struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Order          int    `json:"order"`
	HasNotes       bool   `json:"has_notes"`
	HasMindmap     bool   `json:"has_mindmap"`
	FlashcardCount int    `json:"flashcard_count"`
	MCQCount       int    `json:"mcq_count"`
}

// Note is the AI-generated study notes for a topic.
type Note struct {
	ID                 int      `json:"id"`
	Topic              int      `json:"topic"`
	TopicName          string   `json:"topic_name"`
	Summary            string   `json:"summary"`
	DetailedContent    string   `json:"detailed_content"`
	Analogies          []string `json:"analogies"`
	DiagramDescription string   `json:"diagram_description"`
}

type Flashcard struct {
	ID         int    `json:"id"`
	Topic      int    `json:"topic"`
	FrontText  string `json:"front_text"`
	BackText   string `json:"back_text"`
	Difficulty string `json:"difficulty"`
}

// MCQ is a multiple-choice question. CorrectOption and Explanation are
// empty when the server is asked for quiz mode.
type MCQ struct {
	ID            int    `json:"id"`
	Topic         int    `json:"topic"`
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"correct_option,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	Difficulty    string `json:"difficulty"`
}

// MCQAnswer is the server's verdict on a submitted option.
type MCQAnswer struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectOption string `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// ChatMessage is one exchange with the doubt tutor.
type ChatMessage struct {
	ID          int    `json:"id"`
	Topic       int    `json:"topic"`
	TopicName   string `json:"topic_name"`
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	CreatedAt   string `json:"created_at"`
}
