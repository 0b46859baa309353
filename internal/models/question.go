package models

import "time"

type QuestionLevel string

const (
	LevelBeginner     QuestionLevel = "beginner"
	LevelIntermediate QuestionLevel = "intermediate"
	LevelAdvanced     QuestionLevel = "advanced"
)

var ValidLevels = map[QuestionLevel]bool{
	LevelBeginner:     true,
	LevelIntermediate: true,
	LevelAdvanced:     true,
}

type QuestionTemplate struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedBy   *int64    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Question is one multiple-choice question owned by a template. CorrectOption
// is the zero-based index into the four options (A=0 … D=3).
type Question struct {
	ID            int64         `json:"id"`
	TemplateID    int64         `json:"template_id"`
	Level         QuestionLevel `json:"level"`
	Text          string        `json:"question_text"`
	OptionA       string        `json:"option_a"`
	OptionB       string        `json:"option_b"`
	OptionC       string        `json:"option_c"`
	OptionD       string        `json:"option_d"`
	CorrectOption int           `json:"correct_option"`
	Explanation   string        `json:"explanation,omitempty"`
	Active        bool          `json:"active"`
	CreatedAt     time.Time     `json:"created_at"`
}
