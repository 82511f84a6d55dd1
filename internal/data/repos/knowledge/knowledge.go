package knowledge

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type KnowledgeRepo interface {
	Create(dbc dbctx.Context, k *types.Knowledge) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Knowledge, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Knowledge, error)
	GetByUserSlug(dbc dbctx.Context, userID uuid.UUID, slug string) (*types.Knowledge, error)
	// GetByUserBook finds the owner's node bound to bookID, ignoring excludeID.
	GetByUserBook(dbc dbctx.Context, userID, bookID, excludeID uuid.UUID) (*types.Knowledge, error)
	// Bind sets book_id and title on a still-unbound node and clears the
	// resolution error. Returns false when the node was already bound or gone.
	Bind(dbc dbctx.Context, id, bookID uuid.UUID, title string) (bool, error)
	// SetSlug publishes a node that has no slug yet. Returns false when the
	// node already had one.
	SetSlug(dbc dbctx.Context, id uuid.UUID, slug string, publishedAt time.Time) (bool, error)
	SetResolutionError(dbc dbctx.Context, id uuid.UUID, msg *string) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	// ListUnresolved returns book nodes still waiting for a binding, oldest first.
	ListUnresolved(dbc dbctx.Context, limit int) ([]*types.Knowledge, error)
}

type knowledgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeRepo {
	return &knowledgeRepo{db: db, log: baseLog.With("repo", "KnowledgeRepo")}
}

func (r *knowledgeRepo) Create(dbc dbctx.Context, k *types.Knowledge) error {
	if k == nil {
		return nil
	}
	return dbc.DB(r.db).Create(k).Error
}

func (r *knowledgeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Knowledge, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Knowledge
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *knowledgeRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Knowledge, error) {
	var out []*types.Knowledge
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *knowledgeRepo) GetByUserSlug(dbc dbctx.Context, userID uuid.UUID, slug string) (*types.Knowledge, error) {
	if userID == uuid.Nil || slug == "" {
		return nil, nil
	}
	var row types.Knowledge
	if err := dbc.DB(r.db).
		Where("user_id = ? AND slug = ?", userID, slug).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *knowledgeRepo) GetByUserBook(dbc dbctx.Context, userID, bookID, excludeID uuid.UUID) (*types.Knowledge, error) {
	if userID == uuid.Nil || bookID == uuid.Nil {
		return nil, nil
	}
	var row types.Knowledge
	q := dbc.DB(r.db).Where("user_id = ? AND book_id = ?", userID, bookID)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Order("created_at ASC").Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *knowledgeRepo) Bind(dbc dbctx.Context, id, bookID uuid.UUID, title string) (bool, error) {
	if id == uuid.Nil || bookID == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).
		Model(&types.Knowledge{}).
		Where("id = ? AND book_id IS NULL", id).
		Updates(map[string]interface{}{
			"book_id":          bookID,
			"title":            title,
			"resolution_error": nil,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *knowledgeRepo) SetSlug(dbc dbctx.Context, id uuid.UUID, slug string, publishedAt time.Time) (bool, error) {
	if id == uuid.Nil || slug == "" {
		return false, nil
	}
	res := dbc.DB(r.db).
		Model(&types.Knowledge{}).
		Where("id = ? AND slug IS NULL", id).
		Updates(map[string]interface{}{
			"slug":         slug,
			"published_at": publishedAt,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *knowledgeRepo) SetResolutionError(dbc dbctx.Context, id uuid.UUID, msg *string) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.Knowledge{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"resolution_error": msg,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *knowledgeRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Knowledge{}).Error
}

func (r *knowledgeRepo) ListUnresolved(dbc dbctx.Context, limit int) ([]*types.Knowledge, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Knowledge
	err := dbc.DB(r.db).
		Where("kind = ? AND book_id IS NULL AND resolution_error IS NULL AND query IS NOT NULL", types.KindBook).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
