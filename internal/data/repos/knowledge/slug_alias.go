package knowledge

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type SlugAliasRepo interface {
	// Upsert points (user, slug) at knowledgeID, replacing any earlier target.
	Upsert(dbc dbctx.Context, userID uuid.UUID, slug string, knowledgeID uuid.UUID) error
	GetByUserSlug(dbc dbctx.Context, userID uuid.UUID, slug string) (*types.KnowledgeSlugAlias, error)
	// Reassign moves every alias of fromID to toID.
	Reassign(dbc dbctx.Context, fromID, toID uuid.UUID) error
}

type slugAliasRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSlugAliasRepo(db *gorm.DB, baseLog *logger.Logger) SlugAliasRepo {
	return &slugAliasRepo{db: db, log: baseLog.With("repo", "SlugAliasRepo")}
}

func (r *slugAliasRepo) Upsert(dbc dbctx.Context, userID uuid.UUID, slug string, knowledgeID uuid.UUID) error {
	if userID == uuid.Nil || slug == "" || knowledgeID == uuid.Nil {
		return nil
	}
	row := &types.KnowledgeSlugAlias{UserID: userID, Slug: slug, KnowledgeID: knowledgeID}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"knowledge_id"}),
		}).
		Create(row).Error
}

func (r *slugAliasRepo) GetByUserSlug(dbc dbctx.Context, userID uuid.UUID, slug string) (*types.KnowledgeSlugAlias, error) {
	if userID == uuid.Nil || slug == "" {
		return nil, nil
	}
	var row types.KnowledgeSlugAlias
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

func (r *slugAliasRepo) Reassign(dbc dbctx.Context, fromID, toID uuid.UUID) error {
	if fromID == uuid.Nil || toID == uuid.Nil || fromID == toID {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.KnowledgeSlugAlias{}).
		Where("knowledge_id = ?", fromID).
		Update("knowledge_id", toID).Error
}
