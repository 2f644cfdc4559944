package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func questionArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func newClassifyCommand(resolve servicesResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [question]",
		Short: "Tag a question and print its type",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cmd)
			if err != nil {
				return err
			}
			q, err := s.Classifier.Classify(cmd.Context(), questionArg(args))
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, q)
			}
			cmd.Printf("type:     %s\n", q.Type)
			cmd.Printf("text:     %s\n", q.Text)
			cmd.Printf("verbs:    %s\n", strings.Join(q.Verbs, ", "))
			cmd.Printf("nouns:    %s\n", strings.Join(q.Nouns, ", "))
			cmd.Printf("numeric:  %t\n", q.NumericAnswerExpected)
			for _, e := range q.Entities {
				cmd.Printf("entity:   %s (%s)\n", e.Text, e.Type)
			}
			return nil
		},
	}
}

func newReformulateCommand(resolve servicesResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "reformulate [question]",
		Short: "Print the ranked search queries for a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cmd)
			if err != nil {
				return err
			}
			q, err := s.Classifier.Classify(cmd.Context(), questionArg(args))
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}
			queries := s.Reformulator.Reformulate(cmd.Context(), q)
			if jsonOutput(cmd) {
				return printJSON(cmd, queries)
			}
			for i, query := range queries {
				cmd.Printf("%2d. [%s] %s\n", i+1, query.Kind, query.String())
			}
			return nil
		},
	}
}

func newAskCommand(resolve servicesResolver) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cmd)
			if err != nil {
				return err
			}
			report, err := s.Answerer.Answer(cmd.Context(), questionArg(args))
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, report)
			}
			if len(report.Answers) == 0 {
				cmd.Println("No answer found.")
				return nil
			}
			for i, a := range report.Answers {
				if top > 0 && i >= top {
					break
				}
				cmd.Printf("%2d. %s (%.3f)\n", i+1, a.Text, a.Probability)
			}
			if len(report.BestQuery) > 0 {
				cmd.Printf("best query: %s\n", strings.Join(report.BestQuery, " | "))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 5, "number of answers to print (0 = all)")
	return cmd
}
