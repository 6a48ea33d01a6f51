package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jengzang/tripguide-backend-go/internal/handler"
	"github.com/jengzang/tripguide-backend-go/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Itinerary *handler.ItineraryHandler
	Arrival   *handler.ArrivalHandler
	Provider  *handler.ProviderHandler
	Events    http.Handler // websocket event stream
}

// Options tunes the router middleware
type Options struct {
	Logger    *slog.Logger
	RateLimit rate.Limit // 每个 IP 每秒请求数，0 表示不限
	RateBurst int
}

// SetupRouter 设置路由
func SetupRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(opts.Logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Trip guide API is running",
		})
	})

	if h.Events != nil {
		r.GET("/ws", gin.WrapH(h.Events))
	}

	// API 路由组
	api := r.Group("/api/v1")
	if opts.RateLimit > 0 {
		api.Use(middleware.RateLimit(middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst)))
	}
	{
		// 行程
		itineraries := api.Group("/itineraries")
		{
			itineraries.POST("", h.Itinerary.Plan)
			itineraries.GET("", h.Itinerary.List)
			itineraries.GET("/:key", h.Itinerary.Get)
			itineraries.POST("/:key/move", h.Itinerary.Move)
			itineraries.POST("/:key/retime", h.Itinerary.Retime)
			itineraries.POST("/:key/swap", h.Itinerary.Swap)
			itineraries.POST("/:key/confirm", h.Itinerary.Confirm)
			itineraries.POST("/:key/unlock", h.Itinerary.Unlock)
			itineraries.GET("/:key/days/:day/preview", h.Itinerary.Preview)
		}

		api.GET("/preferences", h.Itinerary.GetPreferences)
		api.PUT("/preferences", h.Itinerary.SavePreferences)

		// 到达检测
		arrival := api.Group("/arrival")
		{
			arrival.POST("/activate", h.Arrival.Activate)
			arrival.POST("/samples", h.Arrival.Sample)
			arrival.POST("/failure", h.Arrival.Failure)
			arrival.POST("/respond", h.Arrival.Respond)
			arrival.POST("/checkin", h.Arrival.CheckIn)
			arrival.POST("/stop", h.Arrival.Stop)
			arrival.GET("/state", h.Arrival.State)
		}

		// 天气与地点
		api.GET("/forecast", h.Provider.Forecast)
		api.GET("/places", h.Provider.Place)
	}

	return r
}
