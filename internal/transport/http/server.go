package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/auth"
	"github.com/vovakirdan/coderoom-server/internal/config"
	"github.com/vovakirdan/coderoom-server/internal/core"
	"github.com/vovakirdan/coderoom-server/internal/store"
)

// NewServer builds the HTTP server: health and metrics probes, the
// websocket endpoint, and the REST API.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(st, logger)

	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)
		api.POST("/guest", apiHandlers.GuestLogin)
	}

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(authService, logger))
	{
		authorized.POST("/rooms", roomHandlers.CreateRoom)
		authorized.GET("/rooms", roomHandlers.ListRooms)
		authorized.GET("/rooms/:id", roomHandlers.GetRoom)
		authorized.POST("/rooms/:id/members", roomHandlers.AddMember)
		authorized.DELETE("/rooms/:id/members/:userId", roomHandlers.RemoveMember)
		authorized.GET("/rooms/:id/messages", roomHandlers.ListMessages)
		authorized.POST("/rooms/:id/messages", roomHandlers.PostMessage)
		authorized.POST("/rooms/:id/files", roomHandlers.CreateFile)
		authorized.GET("/rooms/:id/files", roomHandlers.ListFiles)
		authorized.GET("/rooms/:id/files/:fileId", roomHandlers.GetFile)
		authorized.PUT("/rooms/:id/files/:fileId", roomHandlers.UpdateFile)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
