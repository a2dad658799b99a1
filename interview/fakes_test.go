package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/krshsl/hireagent/backend/models"
)

// memStore is an in-memory Store. Transact holds one lock for the whole
// transaction and only publishes the changes when fn succeeds.
type memStore struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	applicants  map[string]models.Applicant // by email
	sessions    map[string]models.Session   // by order|applicant
	transcripts []models.Transcript
	nextID      int
}

func newMemStore(orders ...*models.Order) *memStore {
	m := &memStore{
		orders:     map[string]*models.Order{},
		applicants: map[string]models.Applicant{},
		sessions:   map[string]models.Session{},
	}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func sessionKey(orderID, applicantID string) string {
	return orderID + "|" + applicantID
}

func (m *memStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		store:      m,
		applicants: make(map[string]models.Applicant, len(m.applicants)),
		sessions:   make(map[string]models.Session, len(m.sessions)),
		nextID:     m.nextID,
	}
	for k, v := range m.applicants {
		tx.applicants[k] = v
	}
	for k, v := range m.sessions {
		tx.sessions[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}

	m.applicants = tx.applicants
	m.sessions = tx.sessions
	m.transcripts = append(m.transcripts, tx.transcripts...)
	m.nextID = tx.nextID
	return nil
}

// seedSession stores an applicant and a session in the given state.
func (m *memStore) seedSession(orderID, email string, s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a := models.Applicant{ID: fmt.Sprintf("applicant-%d", m.nextID), Email: email}
	m.applicants[email] = a
	m.nextID++
	s.ID = fmt.Sprintf("session-%d", m.nextID)
	s.OrderID = orderID
	s.ApplicantID = a.ID
	m.sessions[sessionKey(orderID, a.ID)] = s
}

func (m *memStore) session(orderID, email string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applicants[email]
	if !ok {
		return models.Session{}, false
	}
	s, ok := m.sessions[sessionKey(orderID, a.ID)]
	return s, ok
}

func (m *memStore) applicant(email string) (models.Applicant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applicants[email]
	return a, ok
}

func (m *memStore) counts() (applicants, sessions, transcripts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applicants), len(m.sessions), len(m.transcripts)
}

type memTx struct {
	store       *memStore
	applicants  map[string]models.Applicant
	sessions    map[string]models.Session
	transcripts []models.Transcript
	nextID      int
}

func (t *memTx) id(prefix string) string {
	t.nextID++
	return fmt.Sprintf("%s-%d", prefix, t.nextID)
}

func (t *memTx) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, ok := t.store.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (t *memTx) GetApplicantByEmail(ctx context.Context, email string) (*models.Applicant, error) {
	a, ok := t.applicants[email]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *memTx) GetOrCreateApplicant(ctx context.Context, email string) (*models.Applicant, error) {
	if a, ok := t.applicants[email]; ok {
		return &a, nil
	}
	a := models.Applicant{ID: t.id("applicant"), Email: email}
	t.applicants[email] = a
	return &a, nil
}

func (t *memTx) GetOrCreateSession(ctx context.Context, orderID, applicantID string) (*models.Session, bool, error) {
	key := sessionKey(orderID, applicantID)
	if s, ok := t.sessions[key]; ok {
		return &s, false, nil
	}
	s := models.Session{ID: t.id("session"), OrderID: orderID, ApplicantID: applicantID}
	t.sessions[key] = s
	return &s, true, nil
}

func (t *memTx) GetSessionForUpdate(ctx context.Context, orderID, applicantID string) (*models.Session, error) {
	s, ok := t.sessions[sessionKey(orderID, applicantID)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (t *memTx) SaveSession(ctx context.Context, s *models.Session) error {
	t.sessions[sessionKey(s.OrderID, s.ApplicantID)] = *s
	return nil
}

func (t *memTx) SaveApplicant(ctx context.Context, a *models.Applicant) error {
	t.applicants[a.Email] = *a
	return nil
}

func (t *memTx) AppendTranscript(ctx context.Context, sessionID string, entries ...models.Transcript) error {
	for _, e := range entries {
		e.SessionID = sessionID
		t.transcripts = append(t.transcripts, e)
	}
	return nil
}

type fakeClassifier struct {
	mu       sync.Mutex
	verdicts map[string]Verdict
	err      error
	calls    []string
}

func (f *fakeClassifier) Classify(ctx context.Context, name, text string) (Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.err != nil {
		return VerdictAmbiguous, f.err
	}
	return f.verdicts[name], nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	err   map[string]error
	calls []string
}

func (f *fakeGenerator) Generate(ctx context.Context, name string, vars Vars) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if err := f.err[name]; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%v", name, vars["Text"]), nil
}

// fakeEngine asks numbered questions and finishes after total answers, scoring each one 80.
type fakeEngine struct {
	mu    sync.Mutex
	total int
	texts []string
	err   error
}

func (f *fakeEngine) Ask(ctx context.Context, text string, session *models.Session, agent AgentProfile) (float64, string, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return 0, "", f.err
	}

	if text != "" && session.NQuestions > 0 {
		session.ScoreSum += 80
		session.ConfidenceSum += 0.9
		if session.NQuestions >= f.total {
			score, conf := 80.0, 0.9
			session.Final = true
			session.Score = &score
			session.Confidence = &conf
			return score, "", nil
		}
	}
	session.NQuestions++
	q := fmt.Sprintf("question %d", session.NQuestions)
	session.LastQuestion = &q
	return 80, q, nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

var errModel = errors.New("model unavailable")
