package implementation

import (
	"context"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/mapper"
	"mnp-assistant-be/internal/model"
	"mnp-assistant-be/internal/repository/contract"
	"mnp-assistant-be/pkg/escalation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ticketQueueLockKey is the pg advisory lock id serialising queue reads with inserts.
const ticketQueueLockKey int64 = 7_310_001

type EscalationTicketRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EscalationTicketMapper
}

func NewEscalationTicketRepository(db *gorm.DB) contract.EscalationTicketRepository {
	return &EscalationTicketRepositoryImpl{
		db:     db,
		mapper: mapper.NewEscalationTicketMapper(),
	}
}

// WithQueueLock runs fn inside a transaction holding the queue advisory lock.
// The lock is released on commit or rollback.
func (r *EscalationTicketRepositoryImpl) WithQueueLock(ctx context.Context, fn func(tx escalation.TicketStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", ticketQueueLockKey).Error; err != nil {
			return err
		}
		return fn(&EscalationTicketRepositoryImpl{db: tx, mapper: r.mapper})
	})
}

func (r *EscalationTicketRepositoryImpl) Create(ctx context.Context, ticket *entity.EscalationTicket) error {
	m := r.mapper.ToModel(ticket)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*ticket = *r.mapper.ToEntity(m)
	return nil
}

func (r *EscalationTicketRepositoryImpl) Update(ctx context.Context, ticket *entity.EscalationTicket) error {
	m := r.mapper.ToModel(ticket)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*ticket = *r.mapper.ToEntity(m)
	return nil
}

func (r *EscalationTicketRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.EscalationTicket, error) {
	return first(r.db.WithContext(ctx).Where("id = ?", id), r.mapper.ToEntity)
}

func (r *EscalationTicketRepositoryImpl) FindActiveBySession(ctx context.Context, sessionId uuid.UUID) (*entity.EscalationTicket, error) {
	return first(r.db.WithContext(ctx).
		Where("session_id = ? AND status IN ?", sessionId, statusStrings(entity.ActiveStatuses)).
		Order("created_at DESC"), r.mapper.ToEntity)
}

func (r *EscalationTicketRepositoryImpl) CountByStatus(ctx context.Context, statuses []entity.TicketStatus) (int64, error) {
	return count(r.db.WithContext(ctx).
		Model(&model.EscalationTicket{}).
		Where("status IN ?", statusStrings(statuses)))
}

func (r *EscalationTicketRepositoryImpl) List(ctx context.Context, filter escalation.TicketFilter) ([]*entity.EscalationTicket, error) {
	query := r.db.WithContext(ctx).Model(&model.EscalationTicket{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", string(*filter.Priority))
	}
	if filter.AssignedAgentID != nil {
		query = query.Where("assigned_agent_id = ?", *filter.AssignedAgentID)
	}
	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}

	return all(query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset), r.mapper.ToEntity)
}

func (r *EscalationTicketRepositoryImpl) Aggregate(ctx context.Context, since time.Time) (*escalation.TicketAggregate, error) {
	agg := &escalation.TicketAggregate{
		ByStatus:   make(map[entity.TicketStatus]int),
		ByPriority: make(map[entity.TicketPriority]int),
	}

	var byStatus []model.TicketGroupCount
	err := r.db.WithContext(ctx).
		Model(&model.EscalationTicket{}).
		Select("status AS group_key, COUNT(*) AS total").
		Where("created_at >= ?", since).
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		agg.ByStatus[entity.TicketStatus(row.GroupKey)] = row.Total
	}

	var byPriority []model.TicketGroupCount
	err = r.db.WithContext(ctx).
		Model(&model.EscalationTicket{}).
		Select("priority AS group_key, COUNT(*) AS total").
		Where("created_at >= ?", since).
		Group("priority").
		Scan(&byPriority).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byPriority {
		agg.ByPriority[entity.TicketPriority(row.GroupKey)] = row.Total
	}

	var averages struct {
		AvgWaitSeconds    *float64
		AvgResolveSeconds *float64
	}
	err = r.db.WithContext(ctx).
		Model(&model.EscalationTicket{}).
		Select(
			"AVG(EXTRACT(EPOCH FROM (assigned_at - created_at))) AS avg_wait_seconds, "+
				"AVG(CASE WHEN status = ? THEN EXTRACT(EPOCH FROM (resolved_at - created_at)) END) AS avg_resolve_seconds",
			string(entity.TicketStatusResolved),
		).
		Where("created_at >= ?", since).
		Scan(&averages).Error
	if err != nil {
		return nil, err
	}
	if averages.AvgWaitSeconds != nil {
		agg.AvgWait = time.Duration(*averages.AvgWaitSeconds * float64(time.Second))
	}
	if averages.AvgResolveSeconds != nil {
		agg.AvgResolution = time.Duration(*averages.AvgResolveSeconds * float64(time.Second))
	}
	return agg, nil
}

func statusStrings(statuses []entity.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
