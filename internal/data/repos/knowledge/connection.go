package knowledge

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

// PageOutgoingInput selects one page of a node's outgoing edges. Targets that
// are private and not owned by ViewerID are excluded before counting.
type PageOutgoingInput struct {
	SourceID uuid.UUID
	ViewerID *uuid.UUID
	Offset   int
	Limit    int
}

type ConnectionRepo interface {
	// Create inserts the edge unless (source, target, kind) already exists.
	// Returns false for the duplicate case.
	Create(dbc dbctx.Context, c *types.Connection) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Connection, error)
	Exists(dbc dbctx.Context, sourceID, targetID uuid.UUID, kind types.ConnectionKind) (bool, error)
	ListInbound(dbc dbctx.Context, targetID uuid.UUID) ([]*types.Connection, error)
	ListOutbound(dbc dbctx.Context, sourceID uuid.UUID) ([]*types.Connection, error)
	// Repoint moves an edge to new endpoints, keeping its id, kind and order.
	Repoint(dbc dbctx.Context, id, sourceID, targetID uuid.UUID) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	PageOutgoing(dbc dbctx.Context, in PageOutgoingInput) ([]*types.Connection, int64, error)
}

type connectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	return &connectionRepo{db: db, log: baseLog.With("repo", "ConnectionRepo")}
}

func (r *connectionRepo) Create(dbc dbctx.Context, c *types.Connection) (bool, error) {
	if c == nil {
		return false, nil
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_id"}, {Name: "target_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *connectionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Connection, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Connection
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *connectionRepo) Exists(dbc dbctx.Context, sourceID, targetID uuid.UUID, kind types.ConnectionKind) (bool, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&types.Connection{}).
		Where("source_id = ? AND target_id = ? AND kind = ?", sourceID, targetID, kind).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *connectionRepo) ListInbound(dbc dbctx.Context, targetID uuid.UUID) ([]*types.Connection, error) {
	var out []*types.Connection
	if targetID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("target_id = ?", targetID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *connectionRepo) ListOutbound(dbc dbctx.Context, sourceID uuid.UUID) ([]*types.Connection, error) {
	var out []*types.Connection
	if sourceID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("source_id = ?", sourceID).
		Order("sort_index ASC, created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *connectionRepo) Repoint(dbc dbctx.Context, id, sourceID, targetID uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.Connection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"source_id":  sourceID,
			"target_id":  targetID,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *connectionRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Connection{}).Error
}

type pagedConnection struct {
	types.Connection
	TotalCount int64 `gorm:"column:total_count"`
}

func (r *connectionRepo) PageOutgoing(dbc dbctx.Context, in PageOutgoingInput) ([]*types.Connection, int64, error) {
	out := []*types.Connection{}
	if in.SourceID == uuid.Nil || in.Limit <= 0 {
		return out, 0, nil
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	q := dbc.DB(r.db).
		Table("connection AS c").
		Joins("JOIN knowledge AS t ON t.id = c.target_id").
		Where("c.source_id = ?", in.SourceID)
	if in.ViewerID != nil {
		q = q.Where("(t.is_private = ? OR t.user_id = ?)", false, *in.ViewerID)
	} else {
		q = q.Where("t.is_private = ?", false)
	}

	var rows []pagedConnection
	err := q.Session(&gorm.Session{}).
		Select("c.*, COUNT(*) OVER() AS total_count").
		Order("c.sort_index ASC, c.created_at ASC, c.id ASC").
		Limit(in.Limit).
		Offset(in.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	if len(rows) == 0 {
		// Past the last page the window yields nothing; count separately.
		if in.Offset == 0 {
			return out, 0, nil
		}
		var total int64
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return nil, 0, err
		}
		return out, total, nil
	}

	for i := range rows {
		c := rows[i].Connection
		out = append(out, &c)
	}
	return out, rows[0].TotalCount, nil
}
