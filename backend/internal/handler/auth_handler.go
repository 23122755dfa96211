package handler

import (
	"errors"
	"net/http"

	response "crux-monitor-app/backend/internal/infra/common"
	appLogger "crux-monitor-app/backend/internal/infra/logger"
	authsvc "crux-monitor-app/backend/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 提供管理端登录入口。
type AuthHandler struct {
	service *authsvc.Service
	logger  *zap.SugaredLogger
}

// NewAuthHandler 构造 handler。
func NewAuthHandler(service *authsvc.Service) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  appLogger.S().With("component", "auth.handler"),
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验管理员凭据并签发访问令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	accessToken, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials, "invalid username or password", nil)
			return
		}
		h.logger.Errorw("login failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "login failed", nil)
		return
	}

	response.Success(c, http.StatusOK, accessToken, nil)
}
