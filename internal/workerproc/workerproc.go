package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/EnabledTalentV2/ETBackendV2/internal/bootstrap"
	"github.com/EnabledTalentV2/ETBackendV2/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingRecordID indicates a message missing the record id.
type ErrMissingRecordID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingRecordID) Error() string { return "missing record id" }

// ErrUnknownKind indicates a message with an unrecognized job kind.
type ErrUnknownKind struct {
	Kind      string
	RequestID string
}

func (e ErrUnknownKind) Error() string { return "unknown job kind: " + e.Kind }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	Kind      string
	RecordID  string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process " + e.Kind
	}
	return "process " + e.Kind + ": " + e.Err.Error()
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.RecordID) == "" {
		return msg, meta, ErrMissingRecordID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// Dispatch routes a decoded message to the service that owns its job kind.
func Dispatch(ctx context.Context, app *bootstrap.App, msg queue.Message) error {
	if app == nil {
		return errors.New("app not configured")
	}
	switch msg.Kind {
	case queue.KindParseResume:
		if app.Candidates == nil {
			return errors.New("candidate service not configured")
		}
		if err := app.Candidates.ProcessParse(ctx, msg.RecordID); err != nil {
			return ErrProcess{Kind: msg.Kind, RecordID: msg.RecordID, RequestID: msg.RequestID, Err: err}
		}
		return nil
	case queue.KindRankCandidates:
		if app.JobPosts == nil {
			return errors.New("job post service not configured")
		}
		if err := app.JobPosts.ProcessRank(ctx, msg.RecordID); err != nil {
			return ErrProcess{Kind: msg.Kind, RecordID: msg.RecordID, RequestID: msg.RequestID, Err: err}
		}
		return nil
	default:
		return ErrUnknownKind{Kind: msg.Kind, RequestID: msg.RequestID}
	}
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, app *bootstrap.App, body string) error {
	if app == nil {
		return errors.New("app not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(msg.RecordID) == "" {
		return ErrMissingRecordID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	return Dispatch(ctx, app, msg)
}
