package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-openapi/runtime/middleware"

	"tg-clicker/internal/handlers"
	"tg-clicker/internal/lib/metrics"
	"tg-clicker/internal/middlewares"
)

func InitRoutes(
	playerHandler *handlers.PlayerHandler,
	authHandler *handlers.AuthHandler,
	statusHandler *handlers.StatusHandler,
	authMiddleware *middlewares.AuthMiddleware,
	m *metrics.Metrics,
) *gin.Engine {
	router := gin.Default()

	_ = router.SetTrustedProxies(nil)

	router.Use(m.Middleware())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	router.StaticFile("/swagger.yaml", "./swagger.yaml")

	opts := middleware.SwaggerUIOpts{SpecURL: "/swagger.yaml"}
	sh := middleware.SwaggerUI(opts, nil)

	router.GET("/swagger/*any", func(c *gin.Context) {
		sh.ServeHTTP(c.Writer, c.Request)
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// the Mini-App talks to /api, tools and probes use the bare paths
	for _, group := range []*gin.RouterGroup{&router.RouterGroup, router.Group("/api")} {
		group.GET("/ping", statusHandler.Ping)
		group.GET("/status", statusHandler.Status)
		group.POST("/auth/telegram", authHandler.Auth)

		group.OPTIONS("/players", playerHandler.Preflight)
		group.OPTIONS("/players/:telegramId", playerHandler.Preflight)
		group.OPTIONS("/leaderboard", playerHandler.Preflight)

		game := group.Group("")
		game.Use(authMiddleware.Handle())
		{
			game.POST("/players", playerHandler.SavePlayer)
			game.GET("/players/:telegramId", playerHandler.GetPlayer)
			game.PUT("/players/:telegramId", playerHandler.UpdatePlayer)
			game.GET("/leaderboard", playerHandler.Leaderboard)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}
