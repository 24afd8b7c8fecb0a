package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns string
}

// Indexes for the hot list and polling queries that the per-column tag
// indexes do not cover.
var indexes = []index{
	// Task lists filter by workspace and status, "assigned to me" sorts by due date
	{"tasks", "idx_tasks_workspace_status", "workspace_id, status"},
	{"tasks", "idx_tasks_assignee_due", "assignee_id, due_date"},

	// Board columns
	{"task_pipelines", "idx_task_pipelines_pipeline_status", "pipeline_id, status_id"},

	// Feeds are read newest first per workspace
	{"activity_logs", "idx_activity_logs_workspace_created", "workspace_id, created_at"},
	{"audit_logs", "idx_audit_logs_workspace_created", "workspace_id, created_at"},
	{"messages", "idx_messages_conversation_created", "conversation_id, created_at"},

	// Worker polling
	{"webhook_deliveries", "idx_webhook_deliveries_attempts", "status, attempts, next_attempt_at"},
}

// AddIndexes creates the composite indexes that do not exist yet.
func AddIndexes(db *gorm.DB) error {
	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			log.Debug().Str("index", idx.name).Msg("index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Debug().Str("index", idx.name).Str("table", idx.table).Str("columns", idx.columns).Msg("created index")
	}

	return nil
}
