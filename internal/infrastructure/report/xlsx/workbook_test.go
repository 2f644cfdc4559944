package xlsx

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

func writeInputBook(t *testing.T, rows [][]any) string {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	for i, row := range rows {
		if err := setRow(book, "Sheet1", i+1, row); err != nil {
			t.Fatalf("setRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "questions.xlsx")
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestReadCasesFindsHeaderColumns(t *testing.T) {
	path := writeInputBook(t, [][]any{
		{"id", "Answer", "Question"},
		{1, "1889", " When was the Eiffel Tower built? "},
		{2, "", ""},
		{3, "Neil Armstrong", "Who walked on the moon first?"},
		{4, nil, "Who wrote Dracula?"},
	})

	cases, err := ReadCasesFile(path, "")
	if err != nil {
		t.Fatalf("ReadCasesFile() error = %v", err)
	}
	want := []domain.EvaluationCase{
		{Question: "When was the Eiffel Tower built?", LabeledAnswer: "1889"},
		{Question: "Who walked on the moon first?", LabeledAnswer: "Neil Armstrong"},
		{Question: "Who wrote Dracula?", LabeledAnswer: ""},
	}
	if len(cases) != len(want) {
		t.Fatalf("expected %d cases, got %+v", len(want), cases)
	}
	for i := range want {
		if cases[i] != want[i] {
			t.Fatalf("case %d = %+v, want %+v", i, cases[i], want[i])
		}
	}
}

func TestReadCasesRequiresHeader(t *testing.T) {
	path := writeInputBook(t, [][]any{{"text", "label"}, {"q", "a"}})
	if _, err := ReadCasesFile(path, ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := ReadCases(bytes.NewReader([]byte("not a workbook")), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for garbage, got %v", err)
	}
}

func TestWriteReportSheets(t *testing.T) {
	report := domain.EvaluationReport{
		Results: []domain.EvaluationResult{
			{
				Case:      domain.EvaluationCase{Question: "When was the Eiffel Tower built?", LabeledAnswer: "1889"},
				Answer:    "1889",
				Score:     0.9,
				Correct:   true,
				BestQuery: []string{"Eiffel Tower", "built"},
				Duration:  1500 * time.Millisecond,
				Stats:     &domain.CaseStats{ParagraphsContainAnswer: true, FirstAnswerParagraphIndex: 2, TopThreeContainsAnswer: true},
			},
			{Case: domain.EvaluationCase{Question: "Who?"}, Error: "tagger down"},
		},
		Total:   2,
		Correct: 1,
		Failed:  1,
	}
	report.Stats.Add(*report.Results[0].Stats)
	var buf bytes.Buffer
	if err := WriteReport(&buf, report); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	book, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows(ResultsSheet)
	if err != nil {
		t.Fatalf("GetRows(results) error = %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "question" || rows[1][2] != "1889" || rows[1][4] != "TRUE" {
		t.Fatalf("unexpected results rows %v", rows)
	}
	if rows[1][5] != "Eiffel Tower | built" || rows[1][7] != "1500" || rows[2][6] != "tagger down" {
		t.Fatalf("unexpected results row %v / %v", rows[1], rows[2])
	}
	if len(rows[1]) != 11 || rows[1][8] != "TRUE" || rows[1][9] != "2" || len(rows[2]) != 8 {
		t.Fatalf("unexpected answer location columns %v / %v", rows[1], rows[2])
	}

	summary, err := book.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("GetRows(summary) error = %v", err)
	}
	if len(summary) != 19 || summary[5][0] != "accuracy" || summary[5][1] != "0.5" || summary[1][1] != "2" {
		t.Fatalf("unexpected summary rows %v", summary)
	}
	metrics := make(map[string]string, len(summary))
	for _, row := range summary[1:] {
		metrics[row[0]] = row[1]
	}
	if metrics["labeled"] != "1" || metrics["paragraphs_with_answer"] != "1" || metrics["top3_with_answer"] != "1" {
		t.Fatalf("unexpected answer location metrics %v", metrics)
	}
	if metrics["precision_at_1"] != "0" || metrics["precision_at_3"] != "1" {
		t.Fatalf("unexpected precision metrics %v", metrics)
	}
}
