package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/knowledge-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity
		&types.User{},

		// Bibliographic records
		&types.Book{},

		// Knowledge graph
		&types.Knowledge{},
		&types.Connection{},
		&types.MediaAttachment{},
		&types.KnowledgeSlugAlias{},
	)
}

// EnsureKnowledgeIndexes creates the partial unique indexes gorm tags cannot
// express. Both postgres and sqlite accept this syntax.
func EnsureKnowledgeIndexes(db *gorm.DB) error {
	// (owner, slug) unique once published.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_knowledge_user_slug
		ON knowledge(user_id, slug)
		WHERE slug IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_knowledge_user_slug: %w", err)
	}
	// (owner, book) unique once bound: serializes concurrent binders.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_knowledge_user_book
		ON knowledge(user_id, book_id)
		WHERE book_id IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_knowledge_user_book: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_connection_source_order
		ON connection(source_id, sort_index, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_connection_source_order: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_connection_target
		ON connection(target_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_connection_target: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureKnowledgeIndexes(s.db); err != nil {
		s.log.Error("Knowledge index migration failed", "error", err)
		return err
	}
	return nil
}
