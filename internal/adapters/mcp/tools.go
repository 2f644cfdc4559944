package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

const (
	toolAnswer      = "answer_question"
	toolReformulate = "reformulate_question"
	toolClassify    = "classify_question"
)

type reformulateOutput struct {
	Question domain.Question      `json:"question"`
	Queries  []domain.SearchQuery `json:"queries"`
}

type answerOutput struct {
	Answer     string                    `json:"answer,omitempty"`
	Answers    []domain.AggregatedAnswer `json:"answers"`
	BestQuery  []string                  `json:"best_query,omitempty"`
	Candidates int                       `json:"candidates"`
	Degraded   []string                  `json:"degraded,omitempty"`
}

func questionArg() mcp.ToolOption {
	return mcp.WithString("question",
		mcp.Required(),
		mcp.Description("A natural-language factoid question, e.g. \"When was the Eiffel Tower built?\""),
	)
}

func (s *Server) registerTools() {
	s.server.AddTool(mcp.NewTool(toolAnswer,
		mcp.WithDescription("Answer a factoid question using web search and a reading-comprehension model"),
		questionArg(),
	), s.handleAnswer)

	if s.ports.Reformulator != nil && s.ports.Classifier != nil {
		s.server.AddTool(mcp.NewTool(toolReformulate,
			mcp.WithDescription("Show the ranked search queries generated for a question"),
			questionArg(),
		), s.handleReformulate)
	}

	if s.ports.Classifier != nil {
		s.server.AddTool(mcp.NewTool(toolClassify,
			mcp.WithDescription("Tag a question and classify it as a simple or complex fact question"),
			questionArg(),
		), s.handleClassify)
	}
}

func (s *Server) handleAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.ports.Answerer.Answer(ctx, question)
	if err != nil {
		return s.toolError(toolAnswer, err), nil
	}
	out := answerOutput{
		Answers:    report.Answers,
		BestQuery:  report.BestQuery,
		Candidates: len(report.Candidates),
		Degraded:   report.Degraded,
	}
	if out.Answers == nil {
		out.Answers = []domain.AggregatedAnswer{}
	}
	if top, ok := report.TopAnswer(); ok {
		out.Answer = top.Text
	}
	return jsonResult(out)
}

func (s *Server) handleReformulate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q, err := s.ports.Classifier.Classify(ctx, question)
	if err != nil {
		return s.toolError(toolReformulate, err), nil
	}
	return jsonResult(reformulateOutput{Question: q, Queries: s.ports.Reformulator.Reformulate(ctx, q)})
}

func (s *Server) handleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q, err := s.ports.Classifier.Classify(ctx, question)
	if err != nil {
		return s.toolError(toolClassify, err), nil
	}
	return jsonResult(q)
}

// toolError reports pipeline failures as tool results so the client model
// can read them.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("mcp_tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
