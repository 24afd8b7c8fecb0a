package database

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/gorm"
)

// Models lists every table owned by the application.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Team{},
		&models.TeamMember{},
		&models.Project{},
		&models.Task{},
		&models.TaskDependency{},
		&models.Tag{},
		&models.TaskTag{},
		&models.Pipeline{},
		&models.PipelineStatus{},
		&models.TaskPipeline{},
		&models.Goal{},
		&models.Wiki{},
		&models.Comment{},
		&models.Reaction{},
		&models.Mention{},
		&models.Attachment{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.Invoice{},
		&models.Setting{},
		&models.Webhook{},
		&models.WebhookDelivery{},
		&models.ActivityLog{},
		&models.AuditLog{},
		&models.RecurringTask{},
		&models.UserPreference{},
	}
}

// SystemSettings are seeded as global, undeletable settings.
var SystemSettings = []models.Setting{
	{Key: "registration_enabled", Value: "true", IsSystem: true},
	{Key: "maintenance_mode", Value: "false", IsSystem: true},
	{Key: "max_upload_bytes", Value: "26214400", IsSystem: true},
}

// Migrate brings the schema up to date. A clean database gets the full schema
// in one step and every migration below is recorded as applied.
func Migrate(db *gorm.DB) error {
	log.Info().Msg("running database migrations")

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID:      "202610010001_initial",
			Migrate: func(tx *gorm.DB) error { return tx.AutoMigrate(Models()...) },
		},
		{
			ID:      "202610020001_composite_indexes",
			Migrate: AddIndexes,
			Rollback: func(tx *gorm.DB) error {
				for _, idx := range indexes {
					if tx.Migrator().HasIndex(idx.table, idx.name) {
						if err := tx.Migrator().DropIndex(idx.table, idx.name); err != nil {
							return err
						}
					}
				}
				return nil
			},
		},
		{
			ID:      "202610030001_system_settings",
			Migrate: SeedSystemSettings,
		},
	})

	m.InitSchema(func(tx *gorm.DB) error {
		log.Info().Msg("clean database detected, running full schema initialization")

		if err := tx.AutoMigrate(Models()...); err != nil {
			return err
		}
		if err := AddIndexes(tx); err != nil {
			return err
		}
		return SeedSystemSettings(tx)
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("database migrations completed")
	return nil
}

// SeedSystemSettings inserts missing system settings and leaves existing
// values alone.
func SeedSystemSettings(tx *gorm.DB) error {
	for _, s := range SystemSettings {
		setting := s
		err := tx.Where(map[string]interface{}{"workspace_id": nil, "key": setting.Key}).
			Attrs(models.Setting{Value: setting.Value, IsSystem: true}).
			FirstOrCreate(&setting).Error
		if err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", s.Key, err)
		}
	}
	return nil
}
