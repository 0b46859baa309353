package importer

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"testing"

	"github.com/skillhub/backend/internal/models"
)

func TestRenderErrorReportRoundTrip(t *testing.T) {
	rowErrors := []models.RowError{
		{
			RowNumber: 3,
			Reason:    "missing option B",
			Raw: Row{
				ColLevel:         "beginner",
				ColQuestion:      `Which code means "Not Found", exactly?`,
				ColOptionA:       "200, or OK",
				ColOptionB:       "",
				ColOptionC:       "404",
				ColOptionD:       "500",
				ColCorrectAnswer: "C",
				ColExplanation:   "",
			},
		},
		{
			RowNumber: 7,
			Reason:    `invalid level "Expert"; missing option D`,
			Raw: Row{
				ColLevel:         "Expert",
				ColQuestion:      "What is a goroutine?",
				ColOptionA:       "A thread",
				ColOptionB:       "A lightweight thread",
				ColOptionC:       "A process",
				ColOptionD:       "",
				ColCorrectAnswer: "B",
				ColExplanation:   "See RFC 9110 section 15",
			},
		},
	}

	report, err := RenderErrorReport(rowErrors)
	if err != nil {
		t.Fatalf("RenderErrorReport: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(report)).ReadAll()
	if err != nil {
		t.Fatalf("re-parse report: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if !reflect.DeepEqual(records[0], reportHeader) {
		t.Errorf("header = %v, want %v", records[0], reportHeader)
	}

	// Quote-escaping is reversible: reason and raw fields come back verbatim.
	if records[1][0] != "3" || records[2][0] != "7" {
		t.Errorf("row numbers = %q, %q; want 3, 7", records[1][0], records[2][0])
	}
	if records[1][1] != "missing option B" {
		t.Errorf("reason = %q", records[1][1])
	}
	if records[1][3] != `Which code means "Not Found", exactly?` {
		t.Errorf("embedded quotes mangled: %q", records[1][3])
	}
	if records[2][1] != `invalid level "Expert"; missing option D` {
		t.Errorf("reason = %q", records[2][1])
	}
	if records[2][9] != "See RFC 9110 section 15" {
		t.Errorf("explanation = %q", records[2][9])
	}
}

func TestRenderErrorReportEmpty(t *testing.T) {
	report, err := RenderErrorReport(nil)
	if err != nil {
		t.Fatalf("RenderErrorReport: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(report)).ReadAll()
	if err != nil {
		t.Fatalf("re-parse report: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected header only, got %d records", len(records))
	}
}
