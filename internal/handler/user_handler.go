package handler

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/passport/internal/pkg/errors"
	"github.com/xxxsen/passport/internal/pkg/response"
	"github.com/xxxsen/passport/internal/service"
)

type UserHandler struct {
	users service.AccountStore
}

func NewUserHandler(users service.AccountStore) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		handleError(c, appErr.ErrUnauthorized)
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": userResponse(user)})
}
