package models

import (
	"time"

	"gorm.io/gorm"
)

// Applicant is a candidate identified by email. Skills is overwritten by every
// successful skills classification, whichever order it happened on.
type Applicant struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Skills    *string   `gorm:"type:text" json:"skills,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Applicant) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Session is the persisted conversation state between one applicant and one order.
type Session struct {
	ID           string   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID      string   `gorm:"type:uuid;not null;uniqueIndex:idx_sessions_order_applicant" json:"order_id"`
	ApplicantID  string   `gorm:"type:uuid;not null;uniqueIndex:idx_sessions_order_applicant" json:"applicant_id"`
	Ready        bool     `gorm:"not null" json:"ready"`
	NQuestions   int      `gorm:"column:n_questions;not null" json:"n_questions"`
	LastQuestion *string  `gorm:"type:text" json:"last_question,omitempty"`
	LastAnswer   *string  `gorm:"type:text" json:"last_answer,omitempty"` // The applicant's skills summary
	Final        bool     `gorm:"not null" json:"final"`
	Score        *float64 `json:"score"`
	Confidence   *float64 `json:"confidence"`

	// Running totals over answered questions, used to compute the final averages
	ScoreSum      float64 `gorm:"not null" json:"-"`
	ConfidenceSum float64 `gorm:"not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Order       *Order       `gorm:"foreignKey:OrderID" json:"-"`
	Applicant   *Applicant   `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	Transcripts []Transcript `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"transcripts,omitempty"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

const (
	SpeakerApplicant = "applicant"
	SpeakerAgent     = "agent"
)

// Transcript stores the ordered, turn-by-turn text of the conversation
type Transcript struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string    `gorm:"type:uuid;not null;index" json:"session_id"`
	TurnOrder int       `gorm:"not null" json:"turn_order"` // Dense per session, starting at 1
	Speaker   string    `gorm:"size:20;not null;check:speaker IN ('applicant', 'agent')" json:"speaker"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Transcript) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
