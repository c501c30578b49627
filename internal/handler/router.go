package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/passport/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Users         *UserHandler
	JWTSecret     []byte
	IssueThrottle time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	// Code-issuing routes sit behind a per-ip throttle on top of the
	// engine's own hourly ceiling.
	issue := api.Group("")
	issue.Use(middleware.RateLimit(deps.IssueThrottle))
	issue.POST("/auth/login", deps.Auth.InitiateLogin)
	issue.POST("/auth/register", deps.Auth.InitiateRegister)
	issue.POST("/auth/forgot-password", deps.Auth.ForgotPassword)
	issue.POST("/auth/resend-code", deps.Auth.ResendCode)

	api.POST("/auth/login/verify", deps.Auth.CompleteLogin)
	api.POST("/auth/register/verify", deps.Auth.CompleteRegister)
	api.POST("/auth/forgot-password/verify", deps.Auth.VerifyResetCode)
	api.POST("/auth/reset-password", deps.Auth.ResetPassword)
	api.POST("/auth/social/:provider", deps.Auth.SocialLogin)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/users/me", deps.Users.Me)
}
