package router

import (
	"time"

	"tasktrophy/internal/config"
	"tasktrophy/internal/handlers"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again later.")
}

// Handlers bundles the route targets the router wires up.
type Handlers struct {
	Hub      *handlers.EventHub
	Step     *handlers.StepHandler
	Run      *handlers.RunHandler
	Focus    *handlers.FocusHandler
	Sleep    *handlers.SleepHandler
	Platform *handlers.PlatformHandler
}

// Setup builds the gin engine: recovery, request logging, CORS for the hosted
// page's origins, security headers, and the bridge/platform route tree.
// Command routes are rate limited; getters and ingestion are not, since the
// location callback alone can fire every couple of seconds.
func Setup(log *zap.Logger, conf *config.Config, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.Bridge.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 30,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	bridge := router.Group("/bridge")
	{
		bridge.GET("/events", h.Hub.Stream)

		stepking := bridge.Group("/stepking")
		{
			stepking.POST("/refresh", limiter, h.Step.Refresh)
			stepking.GET("/steps", h.Step.Count)
		}

		ghostrunner := bridge.Group("/ghostrunner")
		{
			ghostrunner.POST("/start", limiter, h.Run.Start)
			ghostrunner.POST("/stop", limiter, h.Run.Stop)
			ghostrunner.GET("/info", h.Run.Info)
			ghostrunner.GET("/points/unsynced", h.Run.Unsynced)
			ghostrunner.POST("/points/synced/:seq", h.Run.MarkSynced)
		}

		deepwork := bridge.Group("/deepwork")
		{
			deepwork.POST("/start", limiter, h.Focus.Start)
			deepwork.POST("/check", h.Focus.Check)
			deepwork.GET("/info", h.Focus.Info)
		}

		sleep := bridge.Group("/sleep")
		{
			sleep.POST("/start", limiter, h.Sleep.Start)
			sleep.POST("/stop", limiter, h.Sleep.Stop)
			sleep.POST("/bedtime", limiter, h.Sleep.Bedtime)
			sleep.POST("/wake", limiter, h.Sleep.Wake)
			sleep.GET("/status", h.Sleep.Status)
		}
	}

	platform := router.Group("/platform")
	{
		platform.POST("/steps", h.Platform.StepSample)
		platform.POST("/location", h.Platform.LocationFix)
		platform.POST("/screen", h.Platform.ScreenEvent)
		platform.POST("/capabilities", h.Platform.Capabilities)
		platform.GET("/status", h.Platform.Status)
	}

	return router
}
