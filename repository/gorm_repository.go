package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/krshsl/hireagent/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(models.All()...)
}

// Transaction runs fn with a repository bound to a single database
// transaction. Returning an error from fn rolls everything back.
func (r *GORMRepository) Transaction(ctx context.Context, fn func(repo *GORMRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMRepository{db: tx})
	})
}

// Ping checks the underlying connection.
func (r *GORMRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Token operations
func (r *GORMRepository) RevokeToken(ctx context.Context, token *models.RevokedToken) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_id"}}, DoNothing: true}).
		Create(token).Error
	if err != nil {
		slog.Error("Failed to revoke token", "error", err, "user_id", token.UserID)
		return err
	}
	return nil
}

func (r *GORMRepository) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("token_id = ?", tokenID).Count(&count).Error; err != nil {
		slog.Error("Failed to check revoked token", "error", err)
		return false, err
	}
	return count > 0, nil
}

// PurgeRevokedTokens drops blacklist entries whose tokens have expired on their own.
func (r *GORMRepository) PurgeRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if res.Error != nil {
		slog.Error("Failed to purge revoked tokens", "error", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Order operations
func (r *GORMRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		slog.Error("Failed to create order", "error", err)
		return err
	}
	slog.Info("Order created", "order_id", order.ID, "customer_id", order.CustomerID)
	return nil
}

// GetOrder loads an order regardless of owner; applicants reach orders by id.
func (r *GORMRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get order", "error", err, "order_id", id)
		return nil, err
	}
	return &order, nil
}

func (r *GORMRepository) GetCustomerOrder(ctx context.Context, id, customerID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ? AND customer_id = ?", id, customerID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get customer order", "error", err, "order_id", id, "customer_id", customerID)
		return nil, err
	}
	return &order, nil
}

func (r *GORMRepository) ListOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).Order("created_at DESC").Find(&orders).Error
	if err != nil {
		slog.Error("Failed to list orders", "error", err, "customer_id", customerID)
		return nil, err
	}
	return orders, nil
}

func (r *GORMRepository) UpdateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		slog.Error("Failed to update order", "error", err, "order_id", order.ID)
		return err
	}
	slog.Info("Order updated", "order_id", order.ID)
	return nil
}

// DeleteOrder soft deletes the order and reports whether it existed.
func (r *GORMRepository) DeleteOrder(ctx context.Context, id, customerID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND customer_id = ?", id, customerID).Delete(&models.Order{})
	if res.Error != nil {
		slog.Error("Failed to delete order", "error", res.Error, "order_id", id)
		return false, res.Error
	}
	slog.Info("Order deleted", "order_id", id, "customer_id", customerID)
	return res.RowsAffected > 0, nil
}

// ListOrderSessions returns the sessions of an order with applicants and transcripts.
func (r *GORMRepository) ListOrderSessions(ctx context.Context, orderID string) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Preload("Applicant").
		Preload("Transcripts", func(db *gorm.DB) *gorm.DB { return db.Order("turn_order") }).
		Order("created_at").
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to list order sessions", "error", err, "order_id", orderID)
		return nil, err
	}
	return sessions, nil
}

// Applicant operations
func (r *GORMRepository) GetApplicantByEmail(ctx context.Context, email string) (*models.Applicant, error) {
	var applicant models.Applicant
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&applicant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get applicant", "error", err, "email", email)
		return nil, err
	}
	return &applicant, nil
}

// GetOrCreateApplicant inserts the applicant unless the email is taken, then loads it.
func (r *GORMRepository) GetOrCreateApplicant(ctx context.Context, email string) (*models.Applicant, error) {
	candidate := models.Applicant{Email: email}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&candidate).Error
	if err != nil {
		slog.Error("Failed to create applicant", "error", err, "email", email)
		return nil, err
	}

	var applicant models.Applicant
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&applicant).Error; err != nil {
		slog.Error("Failed to load applicant", "error", err, "email", email)
		return nil, err
	}
	return &applicant, nil
}

func (r *GORMRepository) SaveApplicant(ctx context.Context, applicant *models.Applicant) error {
	if err := r.db.WithContext(ctx).Save(applicant).Error; err != nil {
		slog.Error("Failed to save applicant", "error", err, "applicant_id", applicant.ID)
		return err
	}
	return nil
}

// Session operations

// GetOrCreateSession inserts the (order, applicant) session if missing and
// returns it locked for the rest of the transaction. created reports whether
// this call inserted the row.
func (r *GORMRepository) GetOrCreateSession(ctx context.Context, orderID, applicantID string) (*models.Session, bool, error) {
	candidate := models.Session{OrderID: orderID, ApplicantID: applicantID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "applicant_id"}},
			DoNothing: true,
		}).
		Create(&candidate)
	if res.Error != nil {
		slog.Error("Failed to create session", "error", res.Error, "order_id", orderID, "applicant_id", applicantID)
		return nil, false, res.Error
	}

	session, err := r.GetSessionForUpdate(ctx, orderID, applicantID)
	if err != nil {
		return nil, false, err
	}
	if session == nil {
		return nil, false, gorm.ErrRecordNotFound
	}
	return session, res.RowsAffected == 1, nil
}

// GetSessionForUpdate loads the session with a row lock (SELECT ... FOR UPDATE).
func (r *GORMRepository) GetSessionForUpdate(ctx context.Context, orderID, applicantID string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND applicant_id = ?", orderID, applicantID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get session", "error", err, "order_id", orderID, "applicant_id", applicantID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) SaveSession(ctx context.Context, session *models.Session) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to save session", "error", err, "session_id", session.ID)
		return err
	}
	return nil
}

// AppendTranscript adds entries after the last turn of the session. Callers
// hold the session row lock, so turn numbers stay dense.
func (r *GORMRepository) AppendTranscript(ctx context.Context, sessionID string, entries ...models.Transcript) error {
	if len(entries) == 0 {
		return nil
	}

	var last int
	err := r.db.WithContext(ctx).
		Model(&models.Transcript{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(turn_order), 0)").
		Scan(&last).Error
	if err != nil {
		slog.Error("Failed to read transcript position", "error", err, "session_id", sessionID)
		return err
	}

	for i := range entries {
		entries[i].SessionID = sessionID
		entries[i].TurnOrder = last + i + 1
	}
	if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
		slog.Error("Failed to append transcript", "error", err, "session_id", sessionID)
		return err
	}
	return nil
}

func (r *GORMRepository) GetTranscripts(ctx context.Context, sessionID string) ([]models.Transcript, error) {
	var transcripts []models.Transcript
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("turn_order").Find(&transcripts).Error
	if err != nil {
		slog.Error("Failed to get transcripts", "error", err, "session_id", sessionID)
		return nil, err
	}
	return transcripts, nil
}
