// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/pkg/logger"
	"knowledge-qa-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth/refresh"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	accessTTL  time.Duration
	refreshTTL time.Duration
	userRepo   repository.UserRepository
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg config.JWTConfig, userRepo repository.UserRepository) *AuthHandler {
	accessTTL := cfg.Expiration
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshExpiration
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &AuthHandler{
		jwtManager: utils.NewJWTManager(cfg.Secret, cfg.Issuer),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		userRepo:   userRepo,
	}
}

// Register 注册
// @Summary 用户注册
// @Description 创建新用户并返回双 Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.AuthResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 检查邮箱是否已存在
	exists, err := h.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to check email existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.Conflict(c, "email already registered")
		return
	}

	// 创建用户实体
	user := entity.NewUser(req.Email, req.Name)
	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}

	// 保存用户
	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}

	// 生成 Token
	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, string(user.Role), h.accessTTL, h.refreshTTL)
	if err != nil {
		dto.InternalError(c, "user created but failed to generate tokens")
		return
	}

	// 设置 RefreshToken 到 Cookie
	h.setRefreshCookie(c, tokens.RefreshToken)

	dto.Created(c, &dto.AuthResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   int(h.accessTTL.Seconds()),
		User:        dto.ToAuthUserDTO(user),
	})
}

// Login 登录
// @Summary 用户登录
// @Description 验证邮箱密码并返回双 Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 查询用户
	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "login failed")
		return
	}

	// 校验存在性及密码
	if user == nil || !user.CheckPassword(req.Password) {
		dto.Unauthorized(c, "invalid email or password")
		return
	}

	// 更新登录状态
	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err, "user_id", user.ID)
	}

	// 生成 Token
	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, string(user.Role), h.accessTTL, h.refreshTTL)
	if err != nil {
		dto.InternalError(c, "failed to generate tokens")
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)

	dto.Success(c, &dto.AuthResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   int(h.accessTTL.Seconds()),
		User:        dto.ToAuthUserDTO(user),
	})
}

// RefreshToken 使用 Cookie 中的 RefreshToken 换取新的 AccessToken
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil {
		dto.Unauthorized(c, "missing refresh token")
		return
	}

	claims, err := h.jwtManager.ParseToken(refreshToken)
	if err != nil {
		dto.Unauthorized(c, "invalid refresh token")
		return
	}
	if claims.Type != "refresh" {
		dto.Unauthorized(c, "invalid token type")
		return
	}

	newAccessToken, err := h.jwtManager.GenerateToken(claims.UserID, claims.Role, "access", h.accessTTL)
	if err != nil {
		dto.InternalError(c, "failed to generate access token")
		return
	}

	dto.Success(c, gin.H{
		"access_token": newAccessToken,
		"expires_in":   int(h.accessTTL.Seconds()),
	})
}

// Logout 登出
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", false, true)
	dto.Success(c, gin.H{"message": "logged out success"})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetCookie(refreshCookieName, token, int(h.refreshTTL.Seconds()), refreshCookiePath, "", false, true)
}
