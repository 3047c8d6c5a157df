package unitofwork

import (
	"context"
	"errors"

	"mnp-assistant-be/internal/repository/contract"
	"mnp-assistant-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	ErrTxActive = errors.New("unit of work: transaction already started")
	ErrNoTx     = errors.New("unit of work: no transaction to commit")
)

type gormFactory struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &gormFactory{db: db}
}

func (f *gormFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return &gormUnitOfWork{db: f.db}
}

type gormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

func (u *gormUnitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *gormUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *gormUnitOfWork) Commit() error {
	if u.tx == nil {
		return ErrNoTx
	}
	tx := u.tx
	u.tx = nil
	return tx.Commit().Error
}

// Rollback is a no-op once the transaction has been committed, so callers can defer it.
func (u *gormUnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	return tx.Rollback().Error
}

func (u *gormUnitOfWork) KnowledgeItemRepository() contract.KnowledgeItemRepository {
	return implementation.NewKnowledgeItemRepository(u.conn())
}

func (u *gormUnitOfWork) WorkflowProgressRepository() contract.WorkflowProgressRepository {
	return implementation.NewWorkflowProgressRepository(u.conn())
}

func (u *gormUnitOfWork) EscalationTicketRepository() contract.EscalationTicketRepository {
	return implementation.NewEscalationTicketRepository(u.conn())
}

func (u *gormUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return implementation.NewChatSessionRepository(u.conn())
}

func (u *gormUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return implementation.NewChatMessageRepository(u.conn())
}
