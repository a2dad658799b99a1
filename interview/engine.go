package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/krshsl/hireagent/backend/models"
)

// DefaultQuestionCount is used when neither the order nor the configuration sets one.
const DefaultQuestionCount = 5

// AgentProfile is the read-only slice of an order the engine needs.
type AgentProfile struct {
	Name           string
	Title          string
	Behaviour      string
	JobDescription string
	Knowledge      string
	Questions      int
}

// ProfileOf extracts the agent profile from an order.
func ProfileOf(order *models.Order) AgentProfile {
	return AgentProfile{
		Name:           order.AgentName,
		Title:          order.Title,
		Behaviour:      order.Behaviour,
		JobDescription: order.JobDescription,
		Knowledge:      order.Knowledge,
		Questions:      order.QuestionCount,
	}
}

// Engine asks interview questions and scores answers. Ask mutates the
// session: it increments NQuestions when it poses a new question and sets
// Final, Score and Confidence when the interview ends. An empty text asks
// the engine to pose the current question again without scoring anything.
type Engine interface {
	Ask(ctx context.Context, text string, session *models.Session, agent AgentProfile) (float64, string, error)
}

// LLMEngine is the model-backed Engine.
type LLMEngine struct {
	completer        Completer
	prompts          *Prompts
	defaultQuestions int
	maxLogLen        int
}

func NewLLMEngine(completer Completer, prompts *Prompts, defaultQuestions, maxLogLength int) *LLMEngine {
	if defaultQuestions <= 0 {
		defaultQuestions = DefaultQuestionCount
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &LLMEngine{
		completer:        completer,
		prompts:          prompts,
		defaultQuestions: defaultQuestions,
		maxLogLen:        maxLogLength,
	}
}

type engineTurn struct {
	Score      float64
	Confidence float64
	Question   string
}

func (e *LLMEngine) Ask(ctx context.Context, text string, session *models.Session, agent AgentProfile) (float64, string, error) {
	total := agent.Questions
	if total <= 0 {
		total = e.defaultQuestions
	}

	answer := strings.TrimSpace(text)
	scoring := answer != "" && session.NQuestions > 0
	closing := scoring && session.NQuestions >= total

	number := session.NQuestions + 1
	if !scoring && session.NQuestions > 0 {
		// Re-posing the question that is still open.
		number = session.NQuestions
	}

	prompt, err := e.prompts.Prompt(PromptEngineTurn, Vars{
		"AgentName":        agent.Name,
		"Title":            agent.Title,
		"Behaviour":        agent.Behaviour,
		"JobDescription":   agent.JobDescription,
		"Knowledge":        agent.Knowledge,
		"Skills":           deref(session.LastAnswer),
		"PreviousQuestion": deref(session.LastQuestion),
		"Answer":           answer,
		"Scoring":          scoring,
		"Closing":          closing,
		"Number":           number,
		"Total":            total,
	})
	if err != nil {
		return 0, "", err
	}

	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return 0, "", fmt.Errorf("failed to run interview turn: %w", err)
	}

	slog.Debug("Interview turn response",
		"session_id", session.ID,
		"question_number", number,
		"response_preview", TruncateForLog(raw, e.maxLogLen),
	)

	turn, err := parseEngineTurn(raw)
	if err != nil {
		return 0, "", err
	}

	var score float64
	if scoring {
		score = clamp(turn.Score, 0, 100)
		session.ScoreSum += score
		session.ConfidenceSum += clamp(turn.Confidence, 0, 1)
	}

	if closing {
		answered := float64(session.NQuestions)
		meanScore := session.ScoreSum / answered
		meanConfidence := session.ConfidenceSum / answered
		session.Final = true
		session.Score = &meanScore
		session.Confidence = &meanConfidence
		slog.Info("Interview finished", "session_id", session.ID, "score", meanScore, "confidence", meanConfidence)
		return meanScore, "", nil
	}

	if turn.Question == "" {
		return 0, "", errors.New("interview engine returned no question")
	}
	if number > session.NQuestions {
		session.NQuestions = number
	}
	session.LastQuestion = &turn.Question
	return score, turn.Question, nil
}

func parseEngineTurn(raw string) (*engineTurn, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("failed to parse interview turn: %w", err)
	}

	turn := &engineTurn{
		Score:      coerceFloat(data["score"]),
		Confidence: coerceFloat(data["confidence"]),
	}
	if q, ok := data["question"].(string); ok {
		turn.Question = strings.TrimSpace(q)
	}
	if math.IsNaN(turn.Score) {
		turn.Score = 0
	}
	if math.IsNaN(turn.Confidence) {
		turn.Confidence = 0
	}
	return turn, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
