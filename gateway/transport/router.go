package transport

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/validation"
	"github.com/imtaco/watch-party/party"
)

const serviceName = "partyd"

type RoomURI struct {
	RoomID string `uri:"roomId" binding:"required,roomid"`
}

type Router struct {
	rooms  party.RoomDirectory
	ice    *party.ICEConfig
	ws     http.HandlerFunc
	clock  clockwork.Clock
	engine *gin.Engine
	logger *log.Logger
}

func NewRouter(
	rooms party.RoomDirectory,
	ice *party.ICEConfig,
	ws http.HandlerFunc,
	allowedOrigins []string,
	clock clockwork.Clock,
	logger *log.Logger,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.Use(cors.New(corsConfig(allowedOrigins)))

	// Add OpenTelemetry middleware for automatic HTTP tracing
	engine.Use(otelgin.Middleware(serviceName))

	r := &Router{
		rooms:  rooms,
		ice:    ice,
		ws:     ws,
		clock:  clock,
		engine: engine,
		logger: logger,
	}

	// Request logging middleware
	r.engine.Use(func(c *gin.Context) {
		r.logger.Debug("Incoming request",
			log.String("method", c.Request.Method),
			log.String("url", c.Request.URL.String()))
		c.Next()
	})

	r.setupRoutes()
	return r
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = allowedOrigins
	return cfg
}

func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) setupRoutes() {
	r.engine.GET("/api/rooms", r.listRooms)
	r.engine.GET("/api/rooms/:roomId", r.getRoom)
	r.engine.GET("/api/ice-servers", r.iceServers)

	if r.ws != nil {
		r.engine.GET("/ws", gin.WrapF(r.ws))
	}

	// Health check
	r.engine.GET("/health", r.healthCheck)
}

func (r *Router) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rooms": r.rooms.ListRooms(),
	})
}

func (r *Router) getRoom(c *gin.Context) {
	var uri RoomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": validation.FormatValidationError(err),
		})
		return
	}

	snap, ok := r.rooms.GetRoom(uri.RoomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Room not found",
		})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (r *Router) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, r.ice)
}

func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   serviceName,
		"timestamp": r.clock.Now().Unix(),
	})
}
