// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"thumbnail-ai-api/pkg/errors"
	"thumbnail-ai-api/pkg/logger"
)

// Recovery Panic 恢复中间件，统一输出 {error, code} 错误体
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// 客户端断开由 net/http 自行处理
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    errors.ErrInternalError.Message,
				"code":     errors.CodeInternalError,
				"trace_id": c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
