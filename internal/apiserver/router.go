package apiserver

import (
	"slices"

	"github.com/amoylab/contentd/internal/apiserver/database"
	"github.com/amoylab/contentd/internal/apiserver/handler"
	"github.com/amoylab/contentd/internal/apiserver/middleware"
	"github.com/amoylab/contentd/internal/auth/jwt"
	"github.com/amoylab/contentd/internal/common/config"
	"github.com/amoylab/contentd/internal/common/errorx"
	"github.com/amoylab/contentd/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Deps carries everything the HTTP layer needs
type Deps struct {
	Logger      *zap.Logger
	DB          database.Database
	Notes       handler.NotePusher
	JWT         *jwt.Service
	Metrics     *metrics.Metrics
	MetricsPath string
	CORS        config.CORSConfig
	ServiceName string
}

// NewRouter builds the gin engine with all routes and middleware
func NewRouter(d Deps) *gin.Engine {
	errh := errorx.NewErrorHandler(d.Logger)

	r := gin.New()
	r.Use(errh.RecoveryMiddleware())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET(d.MetricsPath, gin.WrapH(d.Metrics.Handler()))
	}
	r.Use(corsMiddleware(d.CORS))
	r.Use(errh.ErrorMiddleware())

	app := handler.NewApp(d.DB, d.Logger)
	r.GET("/", app.HandleHello)
	r.GET("/health", app.HandleHealth)

	auth := middleware.JWTAuthMiddleware(d.JWT)

	content := handler.NewContent(d.DB, d.Logger)
	posts := r.Group("/content/social-posts")
	posts.GET("", content.HandleListSocialPosts)
	posts.GET("/:id", content.HandleGetSocialPost)
	posts.POST("", auth, content.HandleCreateSocialPost)
	posts.PATCH("/:id", auth, content.HandleUpdateSocialPost)
	posts.DELETE("/:id", auth, content.HandleDeleteSocialPost)

	hedgedoc := handler.NewHedgeDoc(d.Notes, d.Logger)
	r.PUT("/hedgedoc/:slug", auth, hedgedoc.HandlePutNote)

	return r
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowOrigins
	}
	if len(cfg.AllowMethods) > 0 {
		cc.AllowMethods = cfg.AllowMethods
	}
	cc.AddAllowHeaders("Authorization")
	if len(cfg.AllowHeaders) > 0 {
		cc.AddAllowHeaders(cfg.AllowHeaders...)
	}
	cc.ExposeHeaders = cfg.ExposeHeaders
	cc.AllowCredentials = cfg.AllowCredentials && !cc.AllowAllOrigins
	if cfg.MaxAge > 0 {
		cc.MaxAge = cfg.MaxAge
	}
	return cors.New(cc)
}
