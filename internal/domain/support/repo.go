package support

import (
	"context"

	"github.com/google/uuid"
)

type ContactRepository interface {
	Create(ctx context.Context, m *ContactMessage) error
	List(ctx context.Context, handled *bool, limit, offset int) ([]*ContactMessage, int, error)
	MarkHandled(ctx context.Context, id uuid.UUID) error
}

type ChatRepository interface {
	CreateThread(ctx context.Context, t *ChatThread) error
	GetThread(ctx context.Context, id uuid.UUID) (*ChatThread, error)
	UpdateThreadStatus(ctx context.Context, id uuid.UUID, status string) error
	ListThreads(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*ChatThread, int, error)
	CreateMessage(ctx context.Context, m *ChatMessage) error
	ListMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*ChatMessage, int, error)
}
