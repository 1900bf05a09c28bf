package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a participant submission. Immutable once stored.
type Contact struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	CreatedAt time.Time
}
