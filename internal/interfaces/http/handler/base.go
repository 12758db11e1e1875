package handler

import (
	"net/http"

	"knowledge-qa-api/internal/interfaces/http/dto"
	"knowledge-qa-api/pkg/errors"
	"knowledge-qa-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError 把应用层错误映射为 HTTP 响应。
// AppError 按其错误码映射状态码，其余错误一律 500
func writeError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := appErr.Message
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		// 5xx 不向客户端透出内部细节
		message = "internal server error"
	}

	dto.Error(c, status, message)
}
