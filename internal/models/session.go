package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one dated occurrence of a recurring lesson contract.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Tutor     string    `json:"tutor"`
	Student   string    `json:"student"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"createdAt"`
}
