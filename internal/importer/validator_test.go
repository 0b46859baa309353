package importer

import (
	"reflect"
	"strings"
	"testing"
)

func validRow() Row {
	return Row{
		ColLevel:         "beginner",
		ColQuestion:      "  What does HTTP stand for?  ",
		ColOptionA:       "HyperText Transfer Protocol",
		ColOptionB:       "High Tension Transfer Protocol",
		ColOptionC:       "Hyper Terminal Protocol",
		ColOptionD:       "Host Transfer Protocol",
		ColCorrectAnswer: "A",
		ColExplanation:   " Standard web protocol ",
	}
}

func TestValidateRowSuccess(t *testing.T) {
	q, err := ValidateRow(7, validRow())
	if err != nil {
		t.Fatalf("expected valid row, got: %v", err)
	}

	if q.TemplateID != 7 {
		t.Errorf("template_id = %d, want 7", q.TemplateID)
	}
	if q.Text != "What does HTTP stand for?" {
		t.Errorf("question text not trimmed: %q", q.Text)
	}
	if q.Explanation != "Standard web protocol" {
		t.Errorf("explanation not trimmed: %q", q.Explanation)
	}
	if q.CorrectOption != 0 {
		t.Errorf("correct_option = %d, want 0", q.CorrectOption)
	}
	if !q.Active {
		t.Error("imported questions should be active")
	}
}

func TestValidateRowAnswerLetterNormalization(t *testing.T) {
	// Lowercase with surrounding whitespace is accepted and mapped.
	row := validRow()
	row[ColCorrectAnswer] = "  b  "

	q, err := ValidateRow(1, row)
	if err != nil {
		t.Fatalf("expected valid row, got: %v", err)
	}
	if q.CorrectOption != 1 {
		t.Errorf("correct_option = %d, want 1", q.CorrectOption)
	}
}

func TestValidateRowAnswerLetterMapping(t *testing.T) {
	letters := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}
	for letter, want := range letters {
		row := validRow()
		row[ColCorrectAnswer] = letter
		q, err := ValidateRow(1, row)
		if err != nil {
			t.Fatalf("letter %s: %v", letter, err)
		}
		if q.CorrectOption != want {
			t.Errorf("letter %s mapped to %d, want %d", letter, q.CorrectOption, want)
		}
	}

	row := validRow()
	row[ColCorrectAnswer] = "E"
	if _, err := ValidateRow(1, row); err == nil {
		t.Error("expected rejection for answer letter E")
	}
}

func TestValidateRowMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Row)
		want   string
	}{
		{"missing level", func(r Row) { r[ColLevel] = "" }, "missing level"},
		{"missing question", func(r Row) { r[ColQuestion] = "   " }, "missing question text"},
		{"missing option B", func(r Row) { r[ColOptionB] = "" }, "missing option B"},
		{"missing answer", func(r Row) { r[ColCorrectAnswer] = "" }, "missing correct answer"},
		{"invalid level", func(r Row) { r[ColLevel] = "expert" }, "invalid level"},
	}

	for _, tt := range tests {
		row := validRow()
		tt.mutate(row)
		_, err := ValidateRow(1, row)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q should contain %q", tt.name, err.Error(), tt.want)
		}
	}
}

func TestValidateRowLevelCaseSensitive(t *testing.T) {
	// The level allow-list comparison is case-sensitive, unlike the answer
	// letter.
	row := validRow()
	row[ColLevel] = "Beginner"
	if _, err := ValidateRow(1, row); err == nil {
		t.Error("expected rejection for capitalized level")
	}

	row[ColLevel] = "  beginner  "
	if _, err := ValidateRow(1, row); err != nil {
		t.Errorf("trimmed lowercase level should pass: %v", err)
	}
}

func TestValidateRowAggregatesReasons(t *testing.T) {
	row := validRow()
	row[ColLevel] = ""
	row[ColOptionC] = ""
	row[ColCorrectAnswer] = "Z"

	_, err := ValidateRow(1, row)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"missing level", "missing option C", `"Z"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err.Error(), want)
		}
	}
}

func TestValidateRowIdempotent(t *testing.T) {
	row := validRow()

	q1, err1 := ValidateRow(3, row)
	q2, err2 := ValidateRow(3, row)

	if (err1 == nil) != (err2 == nil) {
		t.Fatalf("decisions differ: %v vs %v", err1, err2)
	}
	if !reflect.DeepEqual(q1, q2) {
		t.Errorf("mapped questions differ: %+v vs %+v", q1, q2)
	}
}
