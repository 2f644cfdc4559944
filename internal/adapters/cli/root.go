// Package cli holds the cobra commands of the qa binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
)

// CaseEvaluator runs labeled questions through the pipeline.
type CaseEvaluator interface {
	Evaluate(ctx context.Context, cases []domain.EvaluationCase, concurrency int) (domain.EvaluationReport, error)
}

// Services are resolved lazily so that commands which do not need the full
// pipeline (help, completion) never dial the collaborators.
type Services struct {
	Classifier   ports.QuestionClassifier
	Reformulator ports.QueryReformulator
	Answerer     ports.QuestionAnswerer
	Evaluator    CaseEvaluator
	Concurrency  int
}

type ServicesFunc func(ctx context.Context) (*Services, error)

var errNotConfigured = errors.New("pipeline is not configured")

func NewRootCommand(load ServicesFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "qa",
		Short:         "Answer factoid questions from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("json", false, "print machine-readable JSON")

	services := func(cmd *cobra.Command) (*Services, error) {
		if load == nil {
			return nil, errNotConfigured
		}
		s, err := load(cmd.Context())
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, errNotConfigured
		}
		return s, nil
	}

	root.AddCommand(
		newClassifyCommand(services),
		newReformulateCommand(services),
		newAskCommand(services),
		newEvaluateCommand(services),
	)
	return root
}

type servicesResolver func(cmd *cobra.Command) (*Services, error)

func jsonOutput(cmd *cobra.Command) bool {
	enabled, _ := cmd.Flags().GetBool("json")
	return enabled
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
