package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/knowledge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/knowledge-backend/internal/http/middleware"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	UserHandler      *httpH.UserHandler
	KnowledgeHandler *httpH.KnowledgeHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Users (public)
		if cfg.UserHandler != nil {
			api.POST("/register", cfg.UserHandler.Register)
		}
	}

	public := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			public.Use(cfg.AuthMiddleware.OptionalAuth())
		}
		// Graph reads (anonymous or authenticated)
		if cfg.KnowledgeHandler != nil {
			public.GET("/u/:namespace/:slugOrId", cfg.KnowledgeHandler.Query)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Knowledge
		if cfg.KnowledgeHandler != nil {
			protected.POST("/knowledge", cfg.KnowledgeHandler.Create)
			protected.DELETE("/knowledge/:id", cfg.KnowledgeHandler.Delete)
			protected.POST("/knowledge/:id/resolve", cfg.KnowledgeHandler.Resolve)
			protected.POST("/knowledge/:id/publish", cfg.KnowledgeHandler.Publish)
			protected.POST("/knowledge/:id/connections", cfg.KnowledgeHandler.Connect)
			protected.DELETE("/connections/:id", cfg.KnowledgeHandler.Disconnect)
		}
	}

	return r
}
