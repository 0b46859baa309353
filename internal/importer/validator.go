package importer

import (
	"fmt"
	"strings"

	"github.com/skillhub/backend/internal/models"
)

// answerIndex maps the spreadsheet's correct-answer letter to the zero-based
// option index persisted on the question.
var answerIndex = map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}

// ValidateRow converts one raw row into a question owned by the template, or
// returns a row-level error describing every problem found. The answer letter
// is trimmed and case-insensitive; the level is trimmed but compared
// case-sensitively against the allow-list.
func ValidateRow(templateID int64, row Row) (*models.Question, error) {
	var errs []string

	level := strings.TrimSpace(row[ColLevel])
	if level == "" {
		errs = append(errs, "missing level")
	} else if !models.ValidLevels[models.QuestionLevel(level)] {
		errs = append(errs, fmt.Sprintf("invalid level %q", level))
	}

	text := strings.TrimSpace(row[ColQuestion])
	if text == "" {
		errs = append(errs, "missing question text")
	}

	options := [4]string{}
	optionCols := []string{ColOptionA, ColOptionB, ColOptionC, ColOptionD}
	for i, col := range optionCols {
		options[i] = strings.TrimSpace(row[col])
		if options[i] == "" {
			errs = append(errs, fmt.Sprintf("missing option %c", 'A'+i))
		}
	}

	letter := strings.ToUpper(strings.TrimSpace(row[ColCorrectAnswer]))
	correct, ok := answerIndex[letter]
	if !ok {
		if letter == "" {
			errs = append(errs, "missing correct answer")
		} else {
			errs = append(errs, fmt.Sprintf("correct answer %q must be A, B, C, or D", letter))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return &models.Question{
		TemplateID:    templateID,
		Level:         models.QuestionLevel(level),
		Text:          text,
		OptionA:       options[0],
		OptionB:       options[1],
		OptionC:       options[2],
		OptionD:       options[3],
		CorrectOption: correct,
		Explanation:   strings.TrimSpace(row[ColExplanation]),
		Active:        true,
	}, nil
}
