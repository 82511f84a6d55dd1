package knowledge

import (
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type MediaAttachmentRepo interface {
	Create(dbc dbctx.Context, rows []*types.MediaAttachment) error
	ListByKnowledgeIDs(dbc dbctx.Context, knowledgeIDs []uuid.UUID) ([]*types.MediaAttachment, error)
	// Reassign moves every attachment of fromID onto toID, ordered after toID's
	// existing attachments. It returns the number of rows moved.
	Reassign(dbc dbctx.Context, fromID, toID uuid.UUID) (int, error)
}

type mediaAttachmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) MediaAttachmentRepo {
	return &mediaAttachmentRepo{db: db, log: baseLog.With("repo", "MediaAttachmentRepo")}
}

func (r *mediaAttachmentRepo) Create(dbc dbctx.Context, rows []*types.MediaAttachment) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(rows).Error
}

func (r *mediaAttachmentRepo) ListByKnowledgeIDs(dbc dbctx.Context, knowledgeIDs []uuid.UUID) ([]*types.MediaAttachment, error) {
	var out []*types.MediaAttachment
	if len(knowledgeIDs) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("knowledge_id IN ?", knowledgeIDs).
		Order("knowledge_id ASC, sort_index ASC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mediaAttachmentRepo) Reassign(dbc dbctx.Context, fromID, toID uuid.UUID) (int, error) {
	if fromID == uuid.Nil || toID == uuid.Nil || fromID == toID {
		return 0, nil
	}
	tx := dbc.DB(r.db)
	var last sql.NullInt64
	if err := tx.Model(&types.MediaAttachment{}).
		Where("knowledge_id = ?", toID).
		Select("MAX(sort_index)").
		Scan(&last).Error; err != nil {
		return 0, err
	}
	var first sql.NullInt64
	if err := tx.Model(&types.MediaAttachment{}).
		Where("knowledge_id = ?", fromID).
		Select("MIN(sort_index)").
		Scan(&first).Error; err != nil {
		return 0, err
	}
	if !first.Valid {
		return 0, nil
	}
	offset := int64(0)
	if last.Valid {
		offset = last.Int64 + 1 - first.Int64
	} else {
		offset = -first.Int64
	}
	res := tx.Model(&types.MediaAttachment{}).
		Where("knowledge_id = ?", fromID).
		Updates(map[string]any{
			"knowledge_id": toID,
			"sort_index":   gorm.Expr("sort_index + ?", offset),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
