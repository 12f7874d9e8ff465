package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Responder is the chat backend strategy. The API client is the real one;
// the demo responder serves canned replies behind the same contract.
type Responder interface {
	Chat(ctx context.Context, message, sessionID string) (reply, newSessionID string, err error)
}

// Orchestrator drives one conversation turn at a time: it gates bad input
// before any side effect, reflects the user's message optimistically, issues
// exactly one chat call, and guarantees the turn ends with a visible
// assistant message even when the call fails.
type Orchestrator struct {
	store     *SessionStore
	health    *HealthMonitor
	responder Responder
	logger    *Logger

	mu   sync.Mutex
	busy bool
}

func NewOrchestrator(store *SessionStore, health *HealthMonitor, responder Responder, logger *Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		health:    health,
		responder: responder,
		logger:    logger,
	}
}

func (o *Orchestrator) IsBusy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Send submits one user message against the active session. Precondition
// failures (ErrEmptyMessage, ErrBusy, ErrDisconnected) reject without any
// store mutation or network call. Otherwise the returned message is the
// assistant's terminal message for the turn: the real reply, or a synthetic
// error notice when the call failed (in which case the error is returned
// alongside it). The optimistic user message is never rolled back.
func (o *Orchestrator) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return Message{}, ErrBusy
	}
	if o.health != nil && o.health.Snapshot().State == StateDisconnected {
		o.mu.Unlock()
		return Message{}, ErrDisconnected
	}
	o.busy = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	session := o.store.Active()
	sessionID := ""
	if session.ServerAssigned {
		sessionID = session.ID
	}

	o.store.AppendUser(text)

	reply, newSessionID, err := o.responder.Chat(ctx, text, sessionID)
	if err != nil {
		o.logger.Error("chat request failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		notice := o.store.AppendNotice(fmt.Sprintf(
			"Sorry, I encountered an error: %v. Please make sure the API server is running and has documents uploaded.", err))
		return notice, err
	}

	return o.store.CompleteExchange(reply, newSessionID), nil
}
