package support

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/websocket"
)

type Service struct {
	contacts ContactRepository
	chats    ChatRepository
	events   websocket.EventPublisher // optional
	now      func() time.Time
}

func NewService(contacts ContactRepository, chats ChatRepository, events websocket.EventPublisher) *Service {
	return &Service{contacts: contacts, chats: chats, events: events, now: time.Now}
}

// SubmitContact stores a public contact-form message.
func (s *Service) SubmitContact(ctx context.Context, m *ContactMessage) error {
	if strings.TrimSpace(m.Name) == "" {
		return domainerr.Invalidf("name is required")
	}
	if !strings.Contains(m.Email, "@") {
		return domainerr.Invalidf("a valid email is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return domainerr.Invalidf("message body is required")
	}
	m.Handled = false
	return s.contacts.Create(ctx, m)
}

func (s *Service) ListContact(ctx context.Context, handled *bool, limit, offset int) ([]*ContactMessage, int, error) {
	return s.contacts.List(ctx, handled, limit, offset)
}

func (s *Service) MarkContactHandled(ctx context.Context, id uuid.UUID) error {
	return s.contacts.MarkHandled(ctx, id)
}

// OpenThread starts a support conversation for a patient.
func (s *Service) OpenThread(ctx context.Context, patientID uuid.UUID, subject string) (*ChatThread, error) {
	if patientID == uuid.Nil {
		return nil, domainerr.Invalidf("patient_id is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, domainerr.Invalidf("subject is required")
	}
	t := &ChatThread{
		PatientID: patientID,
		Subject:   subject,
		Status:    ThreadOpen,
	}
	if err := s.chats.CreateThread(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetThread(ctx context.Context, id uuid.UUID) (*ChatThread, error) {
	return s.chats.GetThread(ctx, id)
}

// ListThreads returns a patient's own threads when patientID is set, or
// every thread for staff when it is nil.
func (s *Service) ListThreads(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*ChatThread, int, error) {
	return s.chats.ListThreads(ctx, patientID, limit, offset)
}

// PostMessage appends to an open thread and broadcasts it to the thread's
// websocket topic.
func (s *Service) PostMessage(ctx context.Context, threadID, senderAccountID uuid.UUID, senderRole, body string) (*ChatMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, domainerr.Invalidf("message body is required")
	}
	t, err := s.chats.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if t.Status != ThreadOpen {
		return nil, domainerr.Conflictf("thread is closed")
	}
	m := &ChatMessage{
		ThreadID:        threadID,
		SenderAccountID: senderAccountID,
		SenderRole:      senderRole,
		Body:            body,
	}
	if err := s.chats.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventChatMessage, threadID, m)
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*ChatMessage, int, error) {
	if _, err := s.chats.GetThread(ctx, threadID); err != nil {
		return nil, 0, err
	}
	return s.chats.ListMessages(ctx, threadID, limit, offset)
}

// CloseThread ends the conversation. Further messages are rejected.
func (s *Service) CloseThread(ctx context.Context, threadID uuid.UUID) (*ChatThread, error) {
	t, err := s.chats.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if t.Status == ThreadClosed {
		return nil, domainerr.Conflictf("thread is already closed")
	}
	if err := s.chats.UpdateThreadStatus(ctx, threadID, ThreadClosed); err != nil {
		return nil, err
	}
	t.Status = ThreadClosed
	s.publish(ctx, websocket.EventChatThreadClosed, threadID, t)
	return t, nil
}

func (s *Service) publish(ctx context.Context, eventType string, threadID uuid.UUID, payload interface{}) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = s.events.Publish(ctx, websocket.Event{
		Type:      eventType,
		Topic:     websocket.ChatTopic(threadID),
		Timestamp: s.now(),
		Data:      data,
	})
}
