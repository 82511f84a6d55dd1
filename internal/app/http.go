package app

import (
	"context"

	"gorm.io/gorm"

	kbhttp "github.com/yungbote/knowledge-backend/internal/http"
	httpH "github.com/yungbote/knowledge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/knowledge-backend/internal/http/middleware"
	"github.com/yungbote/knowledge-backend/internal/modules/knowledge"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/jwtauth"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	User      *httpH.UserHandler
	Knowledge *httpH.KnowledgeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, uc knowledge.Usecases, tokens *jwtauth.Verifier) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(dbPinger(db)),
		User:      httpH.NewUserHandler(uc, tokens),
		Knowledge: httpH.NewKnowledgeHandler(uc),
	}
}

func wireMiddleware(log *logger.Logger, tokens *jwtauth.Verifier) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, tokens)}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *kbhttp.Server {
	return kbhttp.NewServer(kbhttp.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.ServiceName,
		CORSOrigins:      cfg.CORSOrigins,
		AuthMiddleware:   middleware.Auth,
		UserHandler:      handlers.User,
		KnowledgeHandler: handlers.Knowledge,
		HealthHandler:    handlers.Health,
	})
}

func dbPinger(db *gorm.DB) httpH.Pinger {
	if db == nil {
		return nil
	}
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
