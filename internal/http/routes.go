package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the route table. The public group is the explicit
// allow-list of endpoints that precede authentication; everything under the
// guarded group passes through AuthRequired first.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/api/auth")
	{
		public.POST("/sign_up", h.SignUp)
		public.POST("/sign_in", h.SignIn)
		public.GET("/google", h.GoogleAuth)
		public.GET("/google/callback", h.GoogleCallback)
		public.POST("/google/token", h.GoogleToken)
		public.POST("/apple/token", h.AppleToken)
	}

	guarded := r.Group("/api/auth", AuthRequired(h.Tokens))
	{
		guarded.POST("/sign_out", h.SignOut)
		guarded.GET("/me", h.Me)
		guarded.DELETE("/account", h.DeleteAccount)
	}

	return r
}
