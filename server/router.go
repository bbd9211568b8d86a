// Package server exposes social.API over HTTP.
package server

import (
	"github.com/Luismorlan/chirpmux/metrics"
	"github.com/Luismorlan/chirpmux/server/middlewares"
	"github.com/Luismorlan/chirpmux/social"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
)

type routerOptions struct {
	metrics      metrics.Reporter
	traceService string
}

type RouterOption func(*routerOptions)

func WithMetrics(r metrics.Reporter) RouterOption {
	return func(o *routerOptions) {
		o.metrics = r
	}
}

// WithTracing adds the Datadog trace middleware under service name.
func WithTracing(service string) RouterOption {
	return func(o *routerOptions) {
		o.traceService = service
	}
}

func NewRouter(api social.API, opts ...RouterOption) *gin.Engine {
	o := &routerOptions{metrics: metrics.Noop{}}
	for _, opt := range opts {
		opt(o)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestId())
	router.Use(middlewares.Logging())
	router.Use(middlewares.Metrics(o.metrics))
	router.Use(cors.Default())
	if o.traceService != "" {
		router.Use(gintrace.Middleware(o.traceService))
	}

	h := NewHandlers(api)
	router.GET("/ping", Ping)
	router.POST("/tweets", h.PostTweet)
	AddUserRoutes(router.Group("/users/:id"), h)
	AddFollowRoutes(router.Group("/follows"), h)
	router.GET("/followers/random", h.RandomFollower)
	return router
}

func AddUserRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/timeline", h.HomeTimeline)
	rg.GET("/following", h.Following)
	rg.GET("/followers/count", h.FollowerCount)
}

func AddFollowRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("", h.IsFollowing)
	rg.POST("", h.Follow)
	rg.POST("/import", h.ImportFollows)
}
