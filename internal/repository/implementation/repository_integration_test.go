package implementation

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/model"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/repository/contract"
	"mnp-assistant-be/pkg/database"
	"mnp-assistant-be/pkg/escalation"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, database.DefaultPoolConfig())
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	return db
}

func unitVector(hot int) []float32 {
	v := make([]float32, 768)
	v[hot] = 1
	return v
}

func TestKnowledgeItemRepositorySearch(t *testing.T) {
	db := openTestDB(t)
	repo := NewKnowledgeItemRepository(db)
	ctx := context.Background()

	au := "au"
	docomo := "docomo"
	category := "it_" + uuid.NewString()[:8]
	generic := &entity.KnowledgeItem{
		Category: category, Question: "MNP予約番号とは何ですか", Answer: "他社へ番号を引き継ぐための10桁の番号です。",
		Keywords: []string{"mnp", "予約番号"}, Priority: 5, IsActive: true, Version: 1,
		Embedding: unitVector(0),
	}
	forAu := &entity.KnowledgeItem{
		Category: category, Question: "auでのMNP予約番号の取得方法", Answer: "My auから取得できます。",
		Keywords: []string{"mnp", "予約番号", "au"}, Carrier: &au, Priority: 3, IsActive: true, Version: 1,
		Embedding: unitVector(0),
	}
	forDocomo := &entity.KnowledgeItem{
		Category: category, Question: "ドコモでのMNP予約番号の取得方法", Answer: "My docomoから取得できます。",
		Keywords: []string{"mnp", "予約番号"}, Carrier: &docomo, Priority: 3, IsActive: true, Version: 1,
		Embedding: unitVector(0),
	}
	inactive := &entity.KnowledgeItem{
		Category: category, Question: "古いMNP予約番号の案内", Answer: "廃止",
		Keywords: []string{"mnp"}, Priority: 1, IsActive: false, Version: 2,
		Embedding: unitVector(0),
	}
	for _, item := range []*entity.KnowledgeItem{generic, forAu, forDocomo, inactive} {
		require.NoError(t, repo.Create(ctx, item))
		require.NotEqual(t, uuid.Nil, item.Id)
	}
	t.Cleanup(func() {
		db.Where("category = ?", category).Delete(&model.KnowledgeItem{})
	})

	filter := contract.KnowledgeFilter{Carrier: "au", Categories: []string{category}}

	t.Run("vector search filters carrier and inactive items", func(t *testing.T) {
		results, err := repo.SearchSimilarWithScore(ctx, unitVector(0), filter, 0.7, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.InDelta(t, 1.0, r.Score, 1e-6)
			assert.NotEqual(t, forDocomo.Id, r.Item.Id)
			assert.NotEqual(t, inactive.Id, r.Item.Id)
		}
	})

	t.Run("vector search applies the floor", func(t *testing.T) {
		results, err := repo.SearchSimilarWithScore(ctx, unitVector(1), filter, 0.7, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("lexical search matches keywords", func(t *testing.T) {
		results, err := repo.SearchLexical(ctx, "予約番号", []string{"予約番号"}, filter, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Score, 0.0)
			assert.Less(t, r.Score, 1.0)
		}
	})

	t.Run("embedding write back", func(t *testing.T) {
		require.NoError(t, repo.UpdateEmbedding(ctx, generic.Id, unitVector(2)))
		results, err := repo.SearchSimilarWithScore(ctx, unitVector(2), filter, 0.9, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, generic.Id, results[0].Item.Id)
		assert.Equal(t, []string{"mnp", "予約番号"}, results[0].Item.Keywords)
	})
}

func TestWorkflowProgressRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewWorkflowProgressRepository(db)
	ctx := context.Background()
	sessionId := uuid.New()
	t.Cleanup(func() {
		db.Where("session_id = ?", sessionId).Delete(&model.WorkflowProgress{})
	})

	none, err := repo.FindActive(ctx, sessionId)
	require.NoError(t, err)
	assert.Nil(t, none)

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := &entity.WorkflowProgress{
		Id:             uuid.New(),
		SessionId:      sessionId,
		WorkflowId:     "carrier_switch",
		CurrentStep:    "check_contract",
		CompletedSteps: []string{"welcome"},
		CollectedData:  map[string]interface{}{"from_carrier": "docomo", "welcome": true},
		Progress:       9,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, repo.Save(ctx, rec))

	rec.CurrentStep = "get_mnp_number"
	rec.CompletedSteps = append(rec.CompletedSteps, "check_contract")
	rec.CollectedData["check_contract"] = "no"
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.FindActive(ctx, sessionId)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "get_mnp_number", got.CurrentStep)
	assert.Equal(t, []string{"welcome", "check_contract"}, got.CompletedSteps)
	assert.Equal(t, "docomo", got.CollectedData["from_carrier"])
	assert.Equal(t, "no", got.CollectedData["check_contract"])

	require.NoError(t, repo.Deactivate(ctx, sessionId))
	got, err = repo.FindActive(ctx, sessionId)
	require.NoError(t, err)
	assert.Nil(t, got)

	history, err := repo.FindBySession(ctx, sessionId)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestEscalationTicketRepositoryQueue(t *testing.T) {
	db := openTestDB(t)
	repo := NewEscalationTicketRepository(db)
	ctx := context.Background()
	sessionId := uuid.New()
	t.Cleanup(func() {
		db.Where("session_id = ?", sessionId).Delete(&model.EscalationTicket{})
	})

	arbiter := escalation.NewArbiter(escalation.DefaultThresholds(), repo, logger.NopLogger{})
	ticket, err := arbiter.Initiate(ctx, escalation.InitiateRequest{
		SessionID: sessionId,
		Reason:    "user requested human support",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusPending, ticket.Status)
	assert.GreaterOrEqual(t, ticket.QueuePosition, 1)

	active, err := repo.FindActiveBySession(ctx, sessionId)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, ticket.Id, active.Id)

	_, err = arbiter.UpdateStatus(ctx, ticket.Id, entity.TicketStatusAssigned, nil)
	require.NoError(t, err)
	resolved, err := arbiter.Resolve(ctx, ticket.Id, escalation.ResolveRequest{Resolution: "answered"})
	require.NoError(t, err)
	assert.NotNil(t, resolved.AssignedAt)
	assert.NotNil(t, resolved.ResolvedAt)

	agg, err := repo.Aggregate(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, agg.ByStatus[entity.TicketStatusResolved], 1)

	sid := sessionId
	listed, err := repo.List(ctx, escalation.TicketFilter{SessionID: &sid, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
