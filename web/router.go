package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/session"
	"github.com/deemkeen/inkblock/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/time/rate"
)

// PostSource lists the posts the feed is built from.
type PostSource interface {
	GetPosts(ctx context.Context) ([]domain.Post, error)
}

// LoginCallbacks completes logins waiting on the identity provider.
type LoginCallbacks interface {
	Resolve(state string, delegation session.Delegation) error
	Reject(state, reason string) error
}

// NewEngine builds the local web server: the identity provider callback
// plus an RSS view of the feed.
func NewEngine(conf *util.AppConfig, posts PostSource, logins LoginCallbacks) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// nothing here accepts a body
	g.Use(MaxBytesMiddleware(64 * 1024))

	// Stricter limit for the callback so nobody can brute force states
	callbackLimiter := NewRateLimiter(rate.Limit(2), 5)
	g.GET("/auth/callback", RateLimitMiddleware(callbackLimiter), func(c *gin.Context) {
		HandleCallback(c, logins)
	})

	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		rss, err := GetRSS(c.Request.Context(), conf, posts)
		if err != nil {
			c.Render(http.StatusBadGateway, render.String{Format: ""})
		} else {
			c.Render(http.StatusOK, render.String{Format: rss})
		}
	})

	g.GET("/feed/:id", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.Render(http.StatusNotFound, render.String{Format: ""})
			return
		}

		rssItem, err := GetRSSItem(c.Request.Context(), conf, posts, id)
		if err != nil {
			c.Render(http.StatusNotFound, render.String{Format: ""})
		} else {
			c.Render(http.StatusOK, render.String{Format: rssItem})
		}
	})

	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": util.GetVersion()})
	})

	return g
}

// Router serves the engine on the configured HTTP port until it fails.
func Router(conf *util.AppConfig, posts PostSource, logins LoginCallbacks) error {
	log.Printf("Starting callback and RSS server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	g := NewEngine(conf, posts, logins)
	return g.Run(fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort))
}
