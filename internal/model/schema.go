package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Tables lists every table owned by the assistant, in dependency order.
func Tables() []interface{} {
	return []interface{}{
		&KnowledgeItem{},
		&WorkflowProgress{},
		&EscalationTicket{},
		&ChatSession{},
		&ChatMessage{},
		&ChatCitation{},
	}
}

var preMigrationSQL = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	`CREATE EXTENSION IF NOT EXISTS vector;`,
}

// search_vector is generated so lexical ranking never drifts from the stored text.
var postMigrationSQL = []string{
	`ALTER TABLE knowledge_items ADD COLUMN IF NOT EXISTS search_vector tsvector
	 GENERATED ALWAYS AS (
	   setweight(to_tsvector('simple', coalesce(question, '')), 'A') ||
	   setweight(to_tsvector('simple', coalesce(answer, '')), 'B')
	 ) STORED;`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_items_search_vector ON knowledge_items USING GIN (search_vector);`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_items_keywords ON knowledge_items USING GIN (keywords);`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_items_embedding ON knowledge_items USING hnsw (embedding vector_cosine_ops);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_workflow_progress_active_session ON workflow_progress (session_id) WHERE is_active;`,
}

// Migrate creates extensions, tables and the indexes AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	for _, stmt := range preMigrationSQL {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}
	if err := db.AutoMigrate(Tables()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range postMigrationSQL {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("post migrate: %w", err)
		}
	}
	return nil
}
