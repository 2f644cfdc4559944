package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/factoid-qa/internal/infrastructure/report/xlsx"
)

func newEvaluateCommand(resolve servicesResolver) *cobra.Command {
	var (
		output      string
		sheet       string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "evaluate <cases.xlsx>",
		Short: "Answer labeled questions from a spreadsheet and report accuracy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := xlsx.ReadCasesFile(args[0], sheet)
			if err != nil {
				return err
			}
			s, err := resolve(cmd)
			if err != nil {
				return err
			}
			if s.Evaluator == nil {
				return errNotConfigured
			}
			workers := concurrency
			if workers <= 0 {
				workers = s.Concurrency
			}
			report, err := s.Evaluator.Evaluate(cmd.Context(), cases, workers)
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}
			if output != "" {
				if err := xlsx.WriteReportFile(output, report); err != nil {
					return err
				}
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, report)
			}
			cmd.Printf("total:     %d\n", report.Total)
			cmd.Printf("correct:   %d\n", report.Correct)
			cmd.Printf("no answer: %d\n", report.NoAnswer)
			cmd.Printf("failed:    %d\n", report.Failed)
			cmd.Printf("accuracy:  %.3f\n", report.Accuracy())
			if st := report.Stats; st.Labeled > 0 {
				cmd.Printf("answer in paragraphs: %d/%d\n", st.ParagraphsWithAnswer, st.Labeled)
				cmd.Printf("answer in shortlist:  %d/%d\n", st.SelectedWithAnswer, st.Labeled)
				cmd.Printf("answer in top 3:      %d/%d\n", st.TopThreeWithAnswer, st.Labeled)
			}
			if output != "" {
				cmd.Printf("report written to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write per-question results to this xlsx file")
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet holding the cases (default: first sheet)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "parallel questions (default from EVAL_CONCURRENCY)")
	return cmd
}
