package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passport/internal/oauth"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
	"github.com/xxxsen/passport/internal/pkg/response"
	"github.com/xxxsen/passport/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

const codeSentMessage = "a verification code has been sent to your email"

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) InitiateLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	if err := h.auth.InitiateLogin(c.Request.Context(), req.Email, req.Password, c.ClientIP()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": codeSentMessage})
}

type verifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

func (h *AuthHandler) CompleteLogin(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	user, token, err := h.auth.CompleteLogin(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "user": userResponse(user)})
}

type registerInitRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) InitiateRegister(c *gin.Context) {
	var req registerInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	if err := h.auth.InitiateRegister(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": codeSentMessage})
}

type registerCompleteRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Code      string `json:"code" binding:"required"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date"`
}

func (h *AuthHandler) CompleteRegister(c *gin.Context) {
	var req registerCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	var birthDate int64
	if req.BirthDate != "" {
		parsed, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			handleError(c, appErr.ErrInvalid)
			return
		}
		birthDate = parsed.Unix()
	}
	user, token, err := h.auth.CompleteRegister(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Code:      req.Code,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		BirthDate: birthDate,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "user": userResponse(user)})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword answers identically whether or not the address has an
// account, so the endpoint cannot be used to enumerate users.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	err := h.auth.InitiateReset(c.Request.Context(), req.Email, c.ClientIP())
	if err != nil && !errors.Is(err, appErr.ErrNotFound) && !errors.Is(err, appErr.ErrNoPassword) {
		handleError(c, err)
		return
	}
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Info("password reset requested for unusable account", zap.Error(err))
	}
	response.Success(c, gin.H{"message": codeSentMessage})
}

func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	ticket, err := h.auth.VerifyResetCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"reset_ticket": ticket})
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	ResetTicket string `json:"reset_ticket" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.ResetTicket, req.NewPassword); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password updated"})
}

type resendCodeRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
}

func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req resendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	if err := h.auth.ResendCode(c.Request.Context(), req.Email, req.Purpose, c.ClientIP()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": codeSentMessage})
}

type socialLoginRequest struct {
	AccessToken string `json:"access_token"`
	Code        string `json:"code"`
	ProviderID  string `json:"provider_id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
}

// SocialLogin accepts either an access token, an authorization code
// (linkedin), or verified profile fields forwarded by the client SDK
// (the twitter popup flow).
func (h *AuthHandler) SocialLogin(c *gin.Context) {
	provider := c.Param("provider")
	var req socialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	accessToken := req.AccessToken
	if accessToken == "" && req.Code != "" {
		token, err := h.auth.ExchangeSocialCode(c.Request.Context(), provider, req.Code)
		if err != nil {
			handleError(c, err)
			return
		}
		accessToken = token
	}
	var supplied *oauth.Profile
	if req.ProviderID != "" {
		supplied = &oauth.Profile{
			SubjectID: req.ProviderID,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		}
	}
	user, token, err := h.auth.SocialLogin(c.Request.Context(), provider, accessToken, supplied)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "user": userResponse(user)})
}
