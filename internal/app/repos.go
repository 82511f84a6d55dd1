package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/knowledge-backend/internal/data/repos"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type Repos struct {
	User       repos.UserRepo
	Book       repos.BookRepo
	Knowledge  repos.KnowledgeRepo
	Connection repos.ConnectionRepo
	Media      repos.MediaAttachmentRepo
	SlugAlias  repos.SlugAliasRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:       repos.NewUserRepo(db, log),
		Book:       repos.NewBookRepo(db, log),
		Knowledge:  repos.NewKnowledgeRepo(db, log),
		Connection: repos.NewConnectionRepo(db, log),
		Media:      repos.NewMediaAttachmentRepo(db, log),
		SlugAlias:  repos.NewSlugAliasRepo(db, log),
	}
}
