package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passport/internal/middleware"
	"github.com/xxxsen/passport/internal/model"
	"github.com/xxxsen/passport/internal/pkg/errcode"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
	"github.com/xxxsen/passport/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

// handleError maps domain sentinels to stable codes and messages. None
// of the messages reveal whether an address is registered; credential
// and code failures share one answer.
func handleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "invalid credentials or verification code")
	case errors.Is(err, appErr.ErrRateLimited):
		response.Error(c, errcode.ErrRateLimited, "too many verification codes requested, try again later")
	case errors.Is(err, appErr.ErrDispatchFailed):
		response.Error(c, errcode.ErrDispatchFailed, "could not deliver the verification code")
	case errors.Is(err, appErr.ErrCodeExpired):
		response.Error(c, errcode.ErrCodeExpired, "the verification code expired, request a new one")
	case errors.Is(err, appErr.ErrAttemptsExceeded):
		response.Error(c, errcode.ErrAttemptsExceeded, "too many attempts, request a new code")
	case errors.Is(err, appErr.ErrAlreadyRegistered):
		response.Error(c, errcode.ErrAlreadyRegistered, "email is already registered")
	case errors.Is(err, appErr.ErrNoPassword):
		response.Error(c, errcode.ErrNoPassword, "this account signs in through a social provider")
	case errors.Is(err, appErr.ErrProfileIncomplete):
		response.Error(c, errcode.ErrProfileIncomplete, "the provider did not supply the required profile fields")
	case errors.Is(err, appErr.ErrProviderUnavailable):
		response.Error(c, errcode.ErrProviderUnavailable, "the identity provider is unavailable, try again later")
	case errors.Is(err, appErr.ErrUnknownProvider):
		response.Error(c, errcode.ErrUnknownProvider, "unsupported identity provider")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	default:
		logutil.GetLogger(c.Request.Context()).Error("request failed",
			zap.String("path", c.Request.URL.Path), zap.Error(err))
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

func userResponse(user *model.User) gin.H {
	out := gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"role_id":    user.RoleID,
		"ctime":      user.Ctime,
	}
	if user.Phone != "" {
		out["phone"] = user.Phone
	}
	if user.BirthDate != 0 {
		out["birth_date"] = user.BirthDate
	}
	return out
}
