// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"thumbnail-ai-api/internal/interfaces/http/dto"
)

// bindJSON 绑定请求体，失败时直接写出错误响应
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			dto.RequestTooLarge(c)
			return false
		}
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
