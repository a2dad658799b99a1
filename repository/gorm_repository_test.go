package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/krshsl/hireagent/backend/models"
)

func newTestRepo(t *testing.T) *GORMRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(context.Background(), Options{
		Driver: DriverSQLite,
		URL:    "file:" + name + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(db.Close)

	repo := NewGORMRepository(db.Gorm)
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	return repo
}

func seedOrder(t *testing.T, repo *GORMRepository) *models.Order {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Email: "owner@example.com", Password: "x"}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	order := &models.Order{CustomerID: user.ID, Title: "Go developer", AgentName: "Ava"}
	if err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	return order
}

func TestGetOrCreateApplicantIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.GetOrCreateApplicant(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateApplicant() error = %v", err)
	}
	second, err := repo.GetOrCreateApplicant(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateApplicant() error = %v", err)
	}
	if first.ID == "" || first.ID != second.ID {
		t.Errorf("ids differ: %q vs %q", first.ID, second.ID)
	}

	missing, err := repo.GetApplicantByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("GetApplicantByEmail() = %v, %v; want nil, nil", missing, err)
	}
}

func TestGetOrCreateSession(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	order := seedOrder(t, repo)
	applicant, err := repo.GetOrCreateApplicant(ctx, "jane@example.com")
	if err != nil {
		t.Fatal(err)
	}

	s, created, err := repo.GetOrCreateSession(ctx, order.ID, applicant.ID)
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if !created || s.NQuestions != 0 || s.Ready || s.LastQuestion != nil {
		t.Errorf("unexpected new session %+v created=%v", s, created)
	}

	q := "hello"
	s.LastQuestion = &q
	s.NQuestions = 2
	if err := repo.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	again, created, err := repo.GetOrCreateSession(ctx, order.ID, applicant.ID)
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if created || again.ID != s.ID || again.NQuestions != 2 || again.LastQuestion == nil || *again.LastQuestion != "hello" {
		t.Errorf("existing session not returned: %+v created=%v", again, created)
	}

	none, err := repo.GetSessionForUpdate(ctx, order.ID, "other")
	if err != nil || none != nil {
		t.Errorf("GetSessionForUpdate() = %v, %v; want nil, nil", none, err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Transaction(ctx, func(tx *GORMRepository) error {
		if _, err := tx.GetOrCreateApplicant(ctx, "rollback@example.com"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}

	a, err := repo.GetApplicantByEmail(ctx, "rollback@example.com")
	if err != nil || a != nil {
		t.Errorf("applicant survived rollback: %v, %v", a, err)
	}
}

func TestAppendTranscriptKeepsTurnsDense(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	order := seedOrder(t, repo)
	applicant, _ := repo.GetOrCreateApplicant(ctx, "jane@example.com")
	s, _, err := repo.GetOrCreateSession(ctx, order.ID, applicant.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.AppendTranscript(ctx, s.ID, models.Transcript{Speaker: models.SpeakerAgent, Content: "hi"}); err != nil {
		t.Fatalf("AppendTranscript() error = %v", err)
	}
	if err := repo.AppendTranscript(ctx, s.ID,
		models.Transcript{Speaker: models.SpeakerApplicant, Content: "hello"},
		models.Transcript{Speaker: models.SpeakerAgent, Content: "skills?"},
	); err != nil {
		t.Fatalf("AppendTranscript() error = %v", err)
	}

	got, err := repo.GetTranscripts(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, tr := range got {
		if tr.TurnOrder != i+1 {
			t.Errorf("turn %d has order %d", i, tr.TurnOrder)
		}
	}

	sessions, err := repo.ListOrderSessions(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || len(sessions[0].Transcripts) != 3 || sessions[0].Applicant == nil {
		t.Errorf("ListOrderSessions() = %+v", sessions)
	}
}

func TestOrdersAreScopedToCustomer(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	order := seedOrder(t, repo)

	if o, err := repo.GetCustomerOrder(ctx, order.ID, "someone-else"); err != nil || o != nil {
		t.Errorf("GetCustomerOrder() for a stranger = %v, %v", o, err)
	}
	if deleted, err := repo.DeleteOrder(ctx, order.ID, "someone-else"); err != nil || deleted {
		t.Errorf("DeleteOrder() for a stranger = %v, %v", deleted, err)
	}

	orders, err := repo.ListOrders(ctx, order.CustomerID)
	if err != nil || len(orders) != 1 {
		t.Fatalf("ListOrders() = %v, %v", orders, err)
	}

	deleted, err := repo.DeleteOrder(ctx, order.ID, order.CustomerID)
	if err != nil || !deleted {
		t.Fatalf("DeleteOrder() = %v, %v", deleted, err)
	}
	if o, err := repo.GetOrder(ctx, order.ID); err != nil || o != nil {
		t.Errorf("GetOrder() after delete = %v, %v", o, err)
	}
}

func TestRevokedTokens(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	for _, tok := range []*models.RevokedToken{
		{TokenID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
		{TokenID: "stale", UserID: "u1", ExpiresAt: now.Add(-time.Hour)},
		{TokenID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
	} {
		if err := repo.RevokeToken(ctx, tok); err != nil {
			t.Fatalf("RevokeToken() error = %v", err)
		}
	}

	if revoked, err := repo.IsTokenRevoked(ctx, "live"); err != nil || !revoked {
		t.Errorf("IsTokenRevoked(live) = %v, %v", revoked, err)
	}
	if revoked, err := repo.IsTokenRevoked(ctx, "other"); err != nil || revoked {
		t.Errorf("IsTokenRevoked(other) = %v, %v", revoked, err)
	}

	n, err := repo.PurgeRevokedTokens(ctx, now)
	if err != nil || n != 1 {
		t.Errorf("PurgeRevokedTokens() = %d, %v; want 1", n, err)
	}
}
