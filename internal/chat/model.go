package chat

import "time"

// Session modes.
const (
	ModeCandidate = "candidate"
	ModeRecruiter = "recruiter"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a persisted conversation. CandidateSlug links candidate-mode
// sessions to a profile; recruiter-mode sessions leave it nil.
type Session struct {
	ID            string
	Mode          string
	CandidateSlug *string
	CreatedAt     time.Time
}

// Message is one append-only entry in a session.
type Message struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}
