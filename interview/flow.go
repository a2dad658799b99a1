package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/krshsl/hireagent/backend/models"
)

// Tx is the set of reads and writes one turn performs, all inside a single
// database transaction. Lookups return nil, nil when the row does not exist.
type Tx interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetApplicantByEmail(ctx context.Context, email string) (*models.Applicant, error)
	GetOrCreateApplicant(ctx context.Context, email string) (*models.Applicant, error)
	// GetOrCreateSession returns the session row locked for update.
	GetOrCreateSession(ctx context.Context, orderID, applicantID string) (*models.Session, bool, error)
	// GetSessionForUpdate returns the session row locked for update.
	GetSessionForUpdate(ctx context.Context, orderID, applicantID string) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	SaveApplicant(ctx context.Context, applicant *models.Applicant) error
	AppendTranscript(ctx context.Context, sessionID string, entries ...models.Transcript) error
}

// Store runs fn in a transaction, committing when fn returns nil and rolling
// back otherwise.
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// TextClassifier is satisfied by *Classifier.
type TextClassifier interface {
	Classify(ctx context.Context, name, text string) (Verdict, error)
}

// TextGenerator is satisfied by *Generator.
type TextGenerator interface {
	Generate(ctx context.Context, name string, vars Vars) (string, error)
}

// Identity is who is talking to the agent: the authenticated customer's email
// wins over an explicitly supplied one.
type Identity struct {
	UserEmail string
	Email     string
}

func (i Identity) email() string {
	if e := normalizeEmail(i.UserEmail); e != "" {
		return e
	}
	return normalizeEmail(i.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Response is what both operations return to the caller.
type Response struct {
	AIText     string   `json:"ai_text"`
	Final      bool     `json:"final"`
	Score      *float64 `json:"score"`
	Confidence *float64 `json:"confidence"`
}

// Options tune the flow.
type Options struct {
	// ResumeClassification makes a paused interview check the applicant's
	// readiness before continuing instead of only asking again.
	ResumeClassification bool
}

type turn struct {
	text           string
	order          *models.Order
	applicant      *models.Applicant
	session        *models.Session
	applicantDirty bool
}

type stageHandler func(ctx context.Context, t *turn) (string, error)

// Service drives the interview session state machine.
type Service struct {
	store      Store
	classifier TextClassifier
	generator  TextGenerator
	engine     Engine
	prompts    *Prompts
	opts       Options
	handlers   map[Stage]stageHandler
}

func NewService(store Store, classifier TextClassifier, generator TextGenerator, engine Engine, prompts *Prompts, opts Options) *Service {
	s := &Service{
		store:      store,
		classifier: classifier,
		generator:  generator,
		engine:     engine,
		prompts:    prompts,
		opts:       opts,
	}
	s.handlers = map[Stage]stageHandler{
		StageClosed:    s.handleClosed,
		StageGreeting:  s.handleGreeting,
		StageSkills:    s.handleSkills,
		StageReadiness: s.handleReadiness,
		StageResume:    s.handleResume,
		StageInterview: s.handleInterview,
	}
	return s
}

// StartSession opens the session between the identified applicant and the
// order, creating the applicant and session when needed, and returns the
// greeting. It never calls the model.
func (s *Service) StartSession(ctx context.Context, orderID string, who Identity) (*Response, error) {
	var resp *Response
	err := s.store.Transact(ctx, func(tx Tx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		email := who.email()
		if email == "" {
			return ErrMissingIdentity
		}

		applicant, err := tx.GetOrCreateApplicant(ctx, email)
		if err != nil {
			return err
		}
		session, created, err := tx.GetOrCreateSession(ctx, order.ID, applicant.ID)
		if err != nil {
			return err
		}

		stage := StageOf(session)
		var greeting string
		if created || stage == StageGreeting {
			greeting, err = s.configuredGreeting(order)
		} else {
			greeting, err = s.reentryGreeting(stage, order, session)
		}
		if err != nil {
			return err
		}

		session.Ready = false
		session.LastQuestion = &greeting
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		if err := tx.AppendTranscript(ctx, session.ID, models.Transcript{Speaker: models.SpeakerAgent, Content: greeting}); err != nil {
			return err
		}

		slog.Info("Session started",
			"order_id", order.ID,
			"session_id", session.ID,
			"created", created,
			"stage", stage.String(),
		)
		resp = responseFor(session, greeting)
		return nil
	})
	if err != nil {
		return nil, asInternal(err)
	}
	return resp, nil
}

// AdvanceSession feeds one applicant message to an existing session and
// returns the agent's reply. The whole turn, model calls included, runs in
// one transaction holding the session row lock, so concurrent turns on the
// same session are serialized and a failed turn leaves no trace.
func (s *Service) AdvanceSession(ctx context.Context, orderID string, who Identity, text string) (*Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}

	var resp *Response
	err := s.store.Transact(ctx, func(tx Tx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		email := who.email()
		if email == "" {
			return ErrMissingIdentity
		}

		applicant, err := tx.GetApplicantByEmail(ctx, email)
		if err != nil {
			return err
		}
		if applicant == nil {
			return ErrApplicantNotFound
		}
		session, err := tx.GetSessionForUpdate(ctx, order.ID, applicant.ID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}

		t := &turn{text: text, order: order, applicant: applicant, session: session}
		stage := StageOf(session)
		reply, err := s.handlers[stage](ctx, t)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}

		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		if t.applicantDirty {
			if err := tx.SaveApplicant(ctx, applicant); err != nil {
				return err
			}
		}
		if err := tx.AppendTranscript(ctx, session.ID,
			models.Transcript{Speaker: models.SpeakerApplicant, Content: text},
			models.Transcript{Speaker: models.SpeakerAgent, Content: reply},
		); err != nil {
			return err
		}

		slog.Info("Session advanced",
			"order_id", order.ID,
			"session_id", session.ID,
			"stage", stage.String(),
			"next_stage", StageOf(session).String(),
			"n_questions", session.NQuestions,
			"final", session.Final,
		)
		resp = responseFor(session, reply)
		return nil
	})
	if err != nil {
		return nil, asInternal(err)
	}
	return resp, nil
}

func (s *Service) handleClosed(ctx context.Context, t *turn) (string, error) {
	return s.closingMessage(t.session)
}

func (s *Service) handleGreeting(ctx context.Context, t *turn) (string, error) {
	msg, err := s.prompts.Message(MsgAskSkills, nil)
	if err != nil {
		return "", err
	}
	t.session.Ready = false
	t.session.LastQuestion = &msg
	return msg, nil
}

func (s *Service) handleSkills(ctx context.Context, t *turn) (string, error) {
	t.session.Ready = false

	verdict, err := s.classifier.Classify(ctx, PromptSkillsCheck, t.text)
	if err != nil {
		return "", err
	}

	switch verdict {
	case VerdictYes:
		summary, err := s.generator.Generate(ctx, PromptSkillsSummary, Vars{"Text": t.text})
		if err != nil {
			return "", err
		}
		t.applicant.Skills = &summary
		t.applicantDirty = true
		t.session.LastAnswer = &summary
		return s.generator.Generate(ctx, PromptReadinessNotice, Vars{})
	case VerdictNo:
		return s.generator.Generate(ctx, PromptSkillsMissing, Vars{"Text": t.text})
	default:
		return s.generator.Generate(ctx, PromptSkillsUnclear, Vars{"Text": t.text})
	}
}

func (s *Service) handleReadiness(ctx context.Context, t *turn) (string, error) {
	verdict, err := s.classifier.Classify(ctx, PromptReadyCheck, t.text)
	if err != nil {
		return "", err
	}

	switch verdict {
	case VerdictYes:
		t.session.Ready = true
		return s.ask(ctx, t, t.text)
	case VerdictNo:
		return s.generator.Generate(ctx, PromptNotReady, Vars{"Text": t.text})
	default:
		return s.generator.Generate(ctx, PromptReadyUnclear, Vars{"Text": t.text})
	}
}

func (s *Service) handleResume(ctx context.Context, t *turn) (string, error) {
	if s.opts.ResumeClassification {
		verdict, err := s.classifier.Classify(ctx, PromptReadyCheck, t.text)
		if err != nil {
			return "", err
		}
		if verdict == VerdictYes {
			t.session.Ready = true
			// The open question is posed again; "yes, I'm ready" is not an answer.
			return s.ask(ctx, t, "")
		}
	}
	return s.generator.Generate(ctx, PromptResume, Vars{"LastQuestion": deref(t.session.LastQuestion)})
}

func (s *Service) handleInterview(ctx context.Context, t *turn) (string, error) {
	return s.ask(ctx, t, t.text)
}

// ask delegates to the engine and swaps in the closing message when the
// engine ends the interview.
func (s *Service) ask(ctx context.Context, t *turn, text string) (string, error) {
	_, reply, err := s.engine.Ask(ctx, text, t.session, ProfileOf(t.order))
	if err != nil {
		return "", err
	}
	if t.session.Final {
		return s.closingMessage(t.session)
	}
	return reply, nil
}

func (s *Service) closingMessage(session *models.Session) (string, error) {
	return s.prompts.Message(MsgClosing, Vars{"Score": intScore(session.Score)})
}

func (s *Service) configuredGreeting(order *models.Order) (string, error) {
	if greeting := strings.TrimSpace(order.AgentGreeting); greeting != "" {
		return greeting, nil
	}
	return s.prompts.Message(MsgDefaultGreeting, Vars{"AgentName": order.AgentName})
}

func (s *Service) reentryGreeting(stage Stage, order *models.Order, session *models.Session) (string, error) {
	vars := Vars{"AgentName": order.AgentName, "Score": intScore(session.Score)}
	switch stage {
	case StageClosed:
		return s.prompts.Message(MsgReentryClosed, vars)
	case StageSkills:
		return s.prompts.Message(MsgReentrySkills, vars)
	case StageReadiness:
		return s.prompts.Message(MsgReentryReadiness, vars)
	case StageResume, StageInterview:
		return s.prompts.Message(MsgReentryInterview, vars)
	default:
		return s.prompts.Message(MsgReentryDefault, vars)
	}
}

func intScore(score *float64) int {
	if score == nil {
		return 0
	}
	return int(*score)
}

func responseFor(session *models.Session, text string) *Response {
	return &Response{
		AIText:     text,
		Final:      session.Final,
		Score:      session.Score,
		Confidence: session.Confidence,
	}
}
