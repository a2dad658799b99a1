// Package models holds the gorm models persisted by the interview backend.
//
// Database schema overview:
//  1. users - customer accounts that own orders
//  2. revoked_tokens - access token ids invalidated on logout
//  3. orders - agent configuration (name, greeting, behaviour, knowledge)
//  4. applicants - candidates identified by email, shared across orders
//  5. sessions - one conversation per (order, applicant) pair
//  6. transcripts - ordered, turn-by-turn text of each session
package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the primary key is still empty.
// IDs are generated client side so the same schema works on postgres and sqlite.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RevokedToken{},
		&Order{},
		&Applicant{},
		&Session{},
		&Transcript{},
	}
}
