// Package session holds the client-side chat session state machine: the
// in-memory state a chat view tracks across one generation turn. State is
// explicit and per-conversation, mutated only through reducers, so there is no
// shared global "current message" store to race on.
package session

import (
	"fmt"
	"strings"

	chatModels "parley/internal/domain/models/chat"
)

// Session states.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateStreaming  State = "streaming"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// MessageStatus is the ephemeral per-turn status shown on the pending
// assistant slot, tagged with the message id it pertains to.
type MessageStatus struct {
	Status    string
	MessageID string
}

// Session tracks one conversation's visible message list and the in-flight
// generation turn. Not safe for concurrent use; a view owns one session.
type Session struct {
	conversationID string

	state    State
	messages []chatModels.Message
	status   *MessageStatus

	// failedID is set while a failed turn is unresolved. New sends are
	// blocked until Retry resolves it.
	failedID string

	pendingText      strings.Builder
	pendingReasoning strings.Builder
}

// New creates a session for a conversation, preloaded with its prior
// messages (the page-load list).
func New(conversationID string, messages []chatModels.Message) *Session {
	return &Session{
		conversationID: conversationID,
		state:          StateIdle,
		messages:       append([]chatModels.Message(nil), messages...),
	}
}

// ConversationID returns the conversation this session is bound to.
func (s *Session) ConversationID() string { return s.conversationID }

// State returns the current session state.
func (s *Session) State() State { return s.state }

// Status returns the current message status, or nil outside a turn.
func (s *Session) Status() *MessageStatus { return s.status }

// Messages returns the visible message list, including the optimistic user
// message of an in-flight turn.
func (s *Session) Messages() []chatModels.Message { return s.messages }

// PendingText returns the assistant text accumulated so far this turn.
func (s *Session) PendingText() string { return s.pendingText.String() }

// PendingReasoning returns the reasoning text accumulated so far this turn.
func (s *Session) PendingReasoning() string { return s.pendingReasoning.String() }

// FailedMessageID returns the id of the unresolved failed message, or "".
func (s *Session) FailedMessageID() string { return s.failedID }

// Submit appends an optimistic user message and moves to submitting.
// Blocked while a prior failure in this session is unresolved.
func (s *Session) Submit(msg chatModels.Message) error {
	if s.failedID != "" {
		return fmt.Errorf("message %s failed and must be retried before sending a new one", s.failedID)
	}
	if s.state == StateSubmitting || s.state == StateStreaming {
		return fmt.Errorf("a generation is already in flight")
	}

	msg.Sent = true
	s.messages = append(s.messages, msg)
	s.state = StateSubmitting
	s.status = &MessageStatus{Status: chatModels.StatusThinking, MessageID: msg.ID}
	s.pendingText.Reset()
	s.pendingReasoning.Reset()
	return nil
}

// StreamOpened records the server's thinking frame: the request was accepted
// and the stream is live.
func (s *Session) StreamOpened() error {
	if s.state != StateSubmitting {
		return fmt.Errorf("cannot open stream in state %s", s.state)
	}
	s.state = StateStreaming
	return nil
}

// ApplyTextDelta accumulates one incremental text chunk.
func (s *Session) ApplyTextDelta(text string) error {
	if s.state != StateStreaming {
		return fmt.Errorf("cannot apply delta in state %s", s.state)
	}
	s.pendingText.WriteString(text)
	return nil
}

// ApplyReasoningDelta accumulates one reasoning chunk and flips the pending
// indicator from thinking to reasoning.
func (s *Session) ApplyReasoningDelta(text string) error {
	if s.state != StateStreaming {
		return fmt.Errorf("cannot apply delta in state %s", s.state)
	}
	s.pendingReasoning.WriteString(text)
	if s.status != nil {
		s.status.Status = chatModels.StatusReasoning
	}
	return nil
}

// Complete records the terminal done frame: the assistant message replaces
// the pending slot and the session returns to a sendable state.
func (s *Session) Complete(assistant chatModels.Message) error {
	if s.state != StateStreaming {
		return fmt.Errorf("cannot complete in state %s", s.state)
	}
	s.messages = append(s.messages, assistant)
	s.state = StateDone
	s.status = &MessageStatus{Status: chatModels.StatusDone, MessageID: assistant.ID}
	s.pendingText.Reset()
	s.pendingReasoning.Reset()
	return nil
}

// Fail records a terminal failure (failed frame, network error, or stream
// drop). The originating user message is flagged so the retry affordance can
// attach to it; further sends are blocked until Retry.
func (s *Session) Fail(messageID string) error {
	if s.state != StateSubmitting && s.state != StateStreaming {
		return fmt.Errorf("cannot fail in state %s", s.state)
	}

	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].Sent = false
			break
		}
	}

	s.state = StateFailed
	s.status = &MessageStatus{Status: chatModels.StatusFailed, MessageID: messageID}
	s.failedID = messageID
	s.pendingText.Reset()
	s.pendingReasoning.Reset()
	return nil
}

// Retry resubmits the failed turn. Only the originally failed message is
// resubmitted, addressed by its id; the server's upsert restores sent=true.
// Returns the message id to resubmit.
func (s *Session) Retry() (string, error) {
	if s.state != StateFailed || s.failedID == "" {
		return "", fmt.Errorf("nothing to retry in state %s", s.state)
	}

	id := s.failedID
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Sent = true
			break
		}
	}

	s.failedID = ""
	s.state = StateSubmitting
	s.status = &MessageStatus{Status: chatModels.StatusThinking, MessageID: id}
	s.pendingText.Reset()
	s.pendingReasoning.Reset()
	return id, nil
}

// Cancel aborts an in-flight turn. No server-side cleanup is signalled; the
// upstream call is expected to honor stream cancellation on its own. Partial
// assistant output is discarded and the session becomes sendable again.
func (s *Session) Cancel() error {
	if s.state != StateSubmitting && s.state != StateStreaming {
		return fmt.Errorf("cannot cancel in state %s", s.state)
	}
	s.state = StateIdle
	s.status = nil
	s.pendingText.Reset()
	s.pendingReasoning.Reset()
	return nil
}
