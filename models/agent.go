package models

import (
	"time"

	"gorm.io/gorm"
)

// Order configures an AI interviewer ("agent") for one position. Applicants
// reach it through /agents/{id}/session.
type Order struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID     string         `gorm:"type:uuid;not null;index" json:"customer_id"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	JobDescription string         `gorm:"type:text" json:"job_description"`
	AgentName      string         `gorm:"size:255;not null" json:"agent_name"`
	AgentGreeting  string         `gorm:"type:text" json:"agent_greeting"`
	Behaviour      string         `gorm:"type:text" json:"behaviour"` // How the interviewer should sound
	Knowledge      string         `gorm:"type:text" json:"knowledge"` // Reference material for questions
	QuestionCount  int            `json:"question_count"`             // 0 means the configured default
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Customer *User     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Sessions []Session `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"sessions,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
