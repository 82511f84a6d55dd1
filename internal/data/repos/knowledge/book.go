package knowledge

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/domain/knowledge"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type BookRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Book, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Book, error)
	// GetByIdentifier looks up by one identifier column (isbn13, isbn10, ...).
	GetByIdentifier(dbc dbctx.Context, column, value string) (*types.Book, error)
	// UpsertByIdentifiers inserts the record or overwrites every descriptive
	// field of the row sharing an identifier. Returns the stored row.
	UpsertByIdentifiers(dbc dbctx.Context, book *types.Book) (*types.Book, error)
}

type bookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
	return &bookRepo{db: db, log: baseLog.With("repo", "BookRepo")}
}

func isIdentifierColumn(col string) bool {
	for _, c := range knowledge.BookIdentifierColumns {
		if c == col {
			return true
		}
	}
	return false
}

func (r *bookRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Book, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Book
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *bookRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Book, error) {
	var out []*types.Book
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookRepo) GetByIdentifier(dbc dbctx.Context, column, value string) (*types.Book, error) {
	if !isIdentifierColumn(column) {
		return nil, fmt.Errorf("unknown book identifier column %q", column)
	}
	if value == "" {
		return nil, nil
	}
	var row types.Book
	if err := dbc.DB(r.db).Where(column+" = ?", value).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *bookRepo) UpsertByIdentifiers(dbc dbctx.Context, book *types.Book) (*types.Book, error) {
	if book == nil {
		return nil, fmt.Errorf("nil book")
	}
	ids := book.Identifiers()
	if len(ids) == 0 {
		return nil, fmt.Errorf("book has no identifiers")
	}

	// Every stored row the record names. A record whose identifiers point at
	// two different rows keeps the highest-priority match.
	var match *types.Book
	for _, col := range knowledge.BookIdentifierColumns {
		v, ok := ids[col]
		if !ok {
			continue
		}
		existing, err := r.GetByIdentifier(dbc, col, v)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			continue
		}
		if match == nil {
			match = existing
			continue
		}
		if existing.ID != match.ID {
			r.log.Warn("Book identifiers span two rows, keeping the first match",
				"kept_id", match.ID,
				"other_id", existing.ID,
				"column", col,
				"value", v,
			)
		}
	}

	row := *book
	if match != nil {
		row.ID = match.ID
		err := dbc.DB(r.db).
			Model(&types.Book{}).
			Where("id = ?", match.ID).
			Select(knowledge.BookDescriptiveColumns).
			Updates(&row).Error
		if err != nil {
			return nil, err
		}
		return r.GetByID(dbc, match.ID)
	}

	// No stored row yet. The conflict clause covers a concurrent insert of
	// the same primary identifier.
	target, value, _ := book.PrimaryIdentifier()
	row.ID = uuid.Nil
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: target}},
			DoUpdates: clause.AssignmentColumns(knowledge.BookDescriptiveColumns),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	stored, err := r.GetByIdentifier(dbc, target, value)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("book upsert on %s=%s returned no row", target, value)
	}
	return stored, nil
}
