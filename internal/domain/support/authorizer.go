package support

import (
	"context"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/platform/auth"
	"github.com/medhub/medhub/internal/platform/websocket"
)

// SubscriberResolver maps a subscribing account to its patient or doctor
// record. Implemented by the account service.
type SubscriberResolver interface {
	PatientIDFor(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error)
	DoctorIDFor(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error)
}

// ChatAuthorizer gates websocket subscriptions the same way the REST
// handlers gate access: a chat topic is limited to the thread's patient, a
// doctor topic to that doctor, and admins may follow anything.
type ChatAuthorizer struct {
	svc *Service
	ids SubscriberResolver
}

func NewChatAuthorizer(svc *Service, ids SubscriberResolver) *ChatAuthorizer {
	return &ChatAuthorizer{svc: svc, ids: ids}
}

// CanSubscribe implements websocket.TopicAuthorizer.
func (a *ChatAuthorizer) CanSubscribe(ctx context.Context, accountID uuid.UUID, role, topic string) bool {
	if role == auth.RoleAdmin {
		return true
	}
	if threadID, ok := websocket.ParseChatTopic(topic); ok {
		return a.ownsThread(ctx, accountID, role, threadID)
	}
	if doctorID, ok := websocket.ParseDoctorTopic(topic); ok {
		return a.isDoctor(ctx, accountID, role, doctorID)
	}
	return false
}

func (a *ChatAuthorizer) ownsThread(ctx context.Context, accountID uuid.UUID, role string, threadID uuid.UUID) bool {
	if role != auth.RolePatient {
		return false
	}
	t, err := a.svc.GetThread(ctx, threadID)
	if err != nil {
		return false
	}
	ownID, err := a.ids.PatientIDFor(ctx, accountID)
	if err != nil || ownID == nil {
		return false
	}
	return *ownID == t.PatientID
}

func (a *ChatAuthorizer) isDoctor(ctx context.Context, accountID uuid.UUID, role string, doctorID uuid.UUID) bool {
	if role != auth.RoleDoctor {
		return false
	}
	ownID, err := a.ids.DoctorIDFor(ctx, accountID)
	if err != nil || ownID == nil {
		return false
	}
	return *ownID == doctorID
}
