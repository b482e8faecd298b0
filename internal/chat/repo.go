package chat

import "context"

// Repo defines persistence for sessions and their messages. Messages are
// append-only; there is no update or delete path.
type Repo interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	AppendMessage(ctx context.Context, msg Message) error
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
}
