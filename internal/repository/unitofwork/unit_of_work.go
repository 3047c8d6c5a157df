package unitofwork

import (
	"context"

	"mnp-assistant-be/internal/repository/contract"
)

// RepositoryFactory hands out a fresh unit of work per request.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}

// UnitOfWork groups repositories over one connection. Between Begin and
// Commit or Rollback every repository it returns shares the transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	KnowledgeItemRepository() contract.KnowledgeItemRepository
	WorkflowProgressRepository() contract.WorkflowProgressRepository
	EscalationTicketRepository() contract.EscalationTicketRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
}
