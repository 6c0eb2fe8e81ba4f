package question

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
	"github.com/opencode-ai/opencode-engine/internal/db"
	"github.com/opencode-ai/opencode-engine/internal/event"
)

// ErrSkipped is returned by ask when the question is skipped via skip(id).
var ErrSkipped = apperr.New(apperr.Cancelled, "question skipped")

// ErrRejected is returned by ask when the question is rejected via
// reject(id, err) with a nil err; a non-nil err is returned as given.
var ErrRejected = apperr.New(apperr.Cancelled, "question rejected")

// Ask is the input to a broker.Ask call.
type Ask struct {
	SessionID string
	Questions json.RawMessage
	Tool      string
}

// settlement is sent once to a pending ask's resolver channel.
type settlement struct {
	answers json.RawMessage
	err     error
}

// Broker persists pending questions to db and resolves them through an
// in-memory table of one-shot channels keyed by question ID, so a
// blocked Ask is woken at most once. Settling an ID with no live
// resolver (unknown, already settled, or asked by a previous process)
// still updates the persisted row and returns nil.
type Broker struct {
	store *db.DB

	mu        sync.Mutex
	resolvers map[string]chan settlement
}

// NewBroker constructs a Broker backed by store.
func NewBroker(store *db.DB) *Broker {
	return &Broker{
		store:     store,
		resolvers: make(map[string]chan settlement),
	}
}

// Ask creates a pending-question row, registers its resolver, and
// blocks until answer, skip, reject or ctx cancellation settles it.
// Persistence outlives the resolver: if the process restarts, the row
// remains "pending" but no resolver exists to wake a caller; a
// restarted process has no way to recover that in-flight Ask, and its
// caller must be treated as having hit the agent's error path.
func (b *Broker) Ask(ctx context.Context, req Ask, now int64) (json.RawMessage, error) {
	id := ulid.Make().String()
	q := &db.PendingQuestion{
		ID:        id,
		SessionID: req.SessionID,
		Tool:      req.Tool,
		Questions: req.Questions,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.store.InsertPendingQuestion(ctx, q); err != nil {
		return nil, err
	}

	ch := make(chan settlement, 1)
	b.mu.Lock()
	b.resolvers[id] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.resolvers, id)
		b.mu.Unlock()
	}()

	event.Publish(event.Event{
		Type: event.QuestionAsked,
		Data: event.QuestionAskedData{ID: id, SessionID: req.SessionID, Tool: req.Tool},
	})

	select {
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.Cancelled, ctx.Err(), "question: ask cancelled")
	case s := <-ch:
		return s.answers, s.err
	}
}

// Answer resolves a pending question with an answers payload.
func (b *Broker) Answer(id string, answers json.RawMessage, now int64) error {
	return b.settle(id, "answered", settlement{answers: answers}, now)
}

// Skip rejects a pending question with ErrSkipped.
func (b *Broker) Skip(id string, now int64) error {
	return b.settle(id, "skipped", settlement{err: ErrSkipped}, now)
}

// Reject rejects a pending question with cause, or ErrRejected if
// cause is nil.
func (b *Broker) Reject(id string, cause error, now int64) error {
	err := cause
	if err == nil {
		err = ErrRejected
	}
	return b.settle(id, "rejected", settlement{err: err}, now)
}

func (b *Broker) settle(id, status string, s settlement, now int64) error {
	var errMsg string
	if s.err != nil {
		errMsg = s.err.Error()
	}
	if err := b.store.ResolvePendingQuestion(context.Background(), id, status, s.answers, errMsg, now); err != nil {
		return err
	}

	b.mu.Lock()
	ch, ok := b.resolvers[id]
	b.mu.Unlock()
	if ok {
		ch <- s
	}

	event.Publish(event.Event{
		Type: event.QuestionResolved,
		Data: event.QuestionResolvedData{ID: id, Status: status},
	})
	return nil
}

// GetPending returns every pending question for a session.
func (b *Broker) GetPending(ctx context.Context, sessionID string) ([]*db.PendingQuestion, error) {
	return b.store.ListPendingQuestions(ctx, sessionID)
}

// GetFirst returns the oldest pending question for a session, or nil.
func (b *Broker) GetFirst(ctx context.Context, sessionID string) (*db.PendingQuestion, error) {
	pending, err := b.store.ListPendingQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return pending[0], nil
}

// HasPending reports whether a session has any pending question.
func (b *Broker) HasPending(ctx context.Context, sessionID string) (bool, error) {
	pending, err := b.store.ListPendingQuestions(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}
