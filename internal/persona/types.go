// Package persona manages the clone's persona profile and builds the
// persona-conditioned prompts used for generation.
package persona

import (
	"time"

	"github.com/google/uuid"
)

// Profile describes how the clone presents itself.
// One profile exists per owner; all fields are optional and fall back to
// neutral defaults at prompt-build time.
type Profile struct {
	OwnerID       uuid.UUID
	Headline      string   // e.g. "a fintech founder"
	Description   string   // biography
	Purpose       string
	SpeakingStyle string
	Instructions  []string // custom behavioral instructions, ordered
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
