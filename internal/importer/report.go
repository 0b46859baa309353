package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/skillhub/backend/internal/models"
)

var reportHeader = []string{
	"Row_Number", "Reason", "Level", "Question",
	"Option_A", "Option_B", "Option_C", "Option_D",
	"Correct_Answer", "Explanation",
}

// RenderErrorReport builds the downloadable CSV listing every failed row with
// its reason and raw field values. encoding/csv handles quote escaping.
func RenderErrorReport(rowErrors []models.RowError) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportHeader); err != nil {
		return nil, fmt.Errorf("write report header: %w", err)
	}

	for _, e := range rowErrors {
		record := []string{
			strconv.Itoa(e.RowNumber),
			e.Reason,
			e.Raw[ColLevel],
			e.Raw[ColQuestion],
			e.Raw[ColOptionA],
			e.Raw[ColOptionB],
			e.Raw[ColOptionC],
			e.Raw[ColOptionD],
			e.Raw[ColCorrectAnswer],
			e.Raw[ColExplanation],
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write report row %d: %w", e.RowNumber, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush report: %w", err)
	}
	return buf.Bytes(), nil
}
