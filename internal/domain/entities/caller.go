package entities

import (
	"time"
)

// CallerProfile is the durable identity record for a caller, keyed by the
// normalized E.164 phone number. It is distinct from the transient call
// session: the same phone number always resolves to the same profile, and
// the name may be refreshed on newer calls.
type CallerProfile struct {
	ID        string    `json:"id" db:"id"`
	Phone     string    `json:"phone" db:"phone"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
