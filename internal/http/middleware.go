package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/schedly/auth-service/internal/log"
	"github.com/schedly/auth-service/internal/metrics"
	"github.com/schedly/auth-service/internal/service"
)

const (
	requestIDHeader = "X-Request-ID"
	authUserKey     = "auth_user_id"
	bearerScheme    = "Bearer"
)

// RequestID propagates the inbound request id (or mints one) into the gin
// context, the request context and the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(log.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Metrics records request count, duration and in-flight gauge per route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		start := time.Now()
		metrics.InFlight.Inc()
		c.Next()
		metrics.InFlight.Dec()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// AuthRequired is the bearer-token guard. Routes registered outside this
// middleware are the public allow-list; everything behind it is deny by
// default: a missing or malformed header, or a token the Token Authority
// rejects, aborts the request before any handler runs.
func AuthRequired(tokens *service.TokenAuthority) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID, err := tokens.Validate(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(authUserKey, userID)
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header. The header
// must be exactly two space-separated parts with the Bearer scheme.
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || parts[0] != bearerScheme || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// authedUser returns the user id the guard attached to the context.
func authedUser(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(authUserKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}
