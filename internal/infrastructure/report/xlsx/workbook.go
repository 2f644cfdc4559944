package xlsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

const (
	ResultsSheet = "results"
	SummarySheet = "summary"
)

var resultColumns = []any{
	"question", "labeled_answer", "answer", "score", "correct", "best_query", "error", "duration_ms",
	"paragraphs_contain_answer", "first_answer_paragraph", "top3_contains_answer",
}

// precisionCutoffs are the shortlist prefixes reported in the summary.
var precisionCutoffs = []int{1, 3, 5, 10, 20}

func ReadCasesFile(path, sheet string) ([]domain.EvaluationCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ReadCases(f, sheet)
}

// ReadCases loads labeled questions from a sheet whose header row names a
// "question" and an "answer" column. An empty sheet name means the first
// sheet. Rows without a question are skipped.
func ReadCases(r io.Reader, sheet string) ([]domain.EvaluationCase, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", err)
	}
	defer book.Close()

	if sheet == "" {
		sheet = book.GetSheetName(0)
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read sheet "+sheet, err)
	}
	if len(rows) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read sheet "+sheet, errors.New("sheet is empty"))
	}

	questionCol, answerCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			questionCol = i
		case "answer", "labeled_answer":
			if answerCol < 0 {
				answerCol = i
			}
		}
	}
	if questionCol < 0 || answerCol < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read sheet "+sheet, errors.New("header must name question and answer columns"))
	}

	cases := make([]domain.EvaluationCase, 0, len(rows)-1)
	for _, row := range rows[1:] {
		question := strings.TrimSpace(cell(row, questionCol))
		if question == "" {
			continue
		}
		cases = append(cases, domain.EvaluationCase{
			Question:      question,
			LabeledAnswer: strings.TrimSpace(cell(row, answerCol)),
		})
	}
	return cases, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func WriteReportFile(path string, report domain.EvaluationReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := WriteReport(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteReport writes per-case results and a summary of accuracy and answer
// locations as two sheets.
func WriteReport(w io.Writer, report domain.EvaluationReport) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName(book.GetSheetName(0), ResultsSheet); err != nil {
		return fmt.Errorf("rename results sheet: %w", err)
	}
	if err := book.SetSheetRow(ResultsSheet, "A1", &resultColumns); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}
	for i, res := range report.Results {
		row := []any{
			res.Case.Question,
			res.Case.LabeledAnswer,
			res.Answer,
			res.Score,
			res.Correct,
			strings.Join(res.BestQuery, " | "),
			res.Error,
			res.Duration.Milliseconds(),
		}
		if st := res.Stats; st != nil {
			row = append(row, st.ParagraphsContainAnswer, st.FirstAnswerParagraphIndex, st.TopThreeContainsAnswer)
		}
		if err := setRow(book, ResultsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := book.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := [][]any{
		{"metric", "value"},
		{"total", report.Total},
		{"correct", report.Correct},
		{"no_answer", report.NoAnswer},
		{"failed", report.Failed},
		{"accuracy", report.Accuracy()},
		{"labeled", report.Stats.Labeled},
		{"paragraphs_with_answer", report.Stats.ParagraphsWithAnswer},
		{"positive_score_with_answer", report.Stats.PositiveScoreWithAnswer},
		{"zero_score_with_answer", report.Stats.ZeroScoreWithAnswer},
		{"selected_with_answer", report.Stats.SelectedWithAnswer},
		{"knowledge_with_answer", report.Stats.KnowledgeWithAnswer},
		{"top3_with_answer", report.Stats.TopThreeWithAnswer},
		{"all_answers_with_answer", report.Stats.AllAnswersWithAnswer},
	}
	for _, k := range precisionCutoffs {
		summary = append(summary, []any{fmt.Sprintf("precision_at_%d", k), report.Stats.PrecisionAt(k)})
	}
	for i, row := range summary {
		if err := setRow(book, SummarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(book *excelize.File, sheet string, row int, values []any) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := book.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
