package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/knowledge-backend/internal/data/repos/knowledge"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type UserRepo = knowledge.UserRepo
type BookRepo = knowledge.BookRepo
type KnowledgeRepo = knowledge.KnowledgeRepo
type ConnectionRepo = knowledge.ConnectionRepo
type MediaAttachmentRepo = knowledge.MediaAttachmentRepo
type SlugAliasRepo = knowledge.SlugAliasRepo

type PageOutgoingInput = knowledge.PageOutgoingInput

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return knowledge.NewUserRepo(db, baseLog)
}
func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
	return knowledge.NewBookRepo(db, baseLog)
}
func NewKnowledgeRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeRepo {
	return knowledge.NewKnowledgeRepo(db, baseLog)
}
func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	return knowledge.NewConnectionRepo(db, baseLog)
}
func NewMediaAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) MediaAttachmentRepo {
	return knowledge.NewMediaAttachmentRepo(db, baseLog)
}
func NewSlugAliasRepo(db *gorm.DB, baseLog *logger.Logger) SlugAliasRepo {
	return knowledge.NewSlugAliasRepo(db, baseLog)
}
