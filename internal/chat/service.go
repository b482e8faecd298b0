package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contains session bookkeeping for the conversational surfaces.
type Service struct {
	Repo Repo
}

// GetOrCreateSession loads the session when an ID is supplied, otherwise it
// creates a new one with the given mode and optional candidate slug.
func (s *Service) GetOrCreateSession(ctx context.Context, sessionID, mode string, candidateSlug *string) (Session, error) {
	if strings.TrimSpace(sessionID) != "" {
		return s.Repo.GetSession(ctx, sessionID)
	}

	if mode != ModeCandidate && mode != ModeRecruiter {
		return Session{}, fmt.Errorf("%w: unknown session mode %q", ErrInvalidInput, mode)
	}

	session := Session{
		ID:            uuid.NewString(),
		Mode:          mode,
		CandidateSlug: candidateSlug,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Repo.CreateSession(ctx, session); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Append records one message in a session.
func (s *Service) Append(ctx context.Context, sessionID, role, content string) (Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Message{}, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return Message{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	msg := Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.AppendMessage(ctx, msg); err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// History returns a session's messages oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}
	return s.Repo.ListMessages(ctx, sessionID)
}
