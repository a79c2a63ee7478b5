package handler

import (
	"fmt"
	"log"
	"strings"
	"time"

	"loyaltysystem/internal/config"
	"loyaltysystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// gin 上下文键
const (
	ContextKeyUID   = "uid"
	ContextKeyEmail = "email"
)

// AuthMiddleware JWT 鉴权中间件
// 从 Authorization: Bearer <token> 解析会话令牌，sub 即会员UID
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "缺少认证信息")
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader || tokenStr == "" {
			response.Unauthorized(c, "认证信息格式错误")
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("签名算法不支持: %v", t.Header["alg"])
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "令牌无效或已过期")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.Unauthorized(c, "令牌无效")
			c.Abort()
			return
		}

		uid, _ := claims["sub"].(string)
		if uid == "" {
			response.Unauthorized(c, "令牌缺少会员标识")
			c.Abort()
			return
		}

		c.Set(ContextKeyUID, uid)
		if email, ok := claims["email"].(string); ok {
			c.Set(ContextKeyEmail, email)
		}

		c.Next()
	}
}

// LoggerMiddleware 请求日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		log.Printf("[GIN] %s %s %d %v", method, path, statusCode, latency)
	}
}

// RecoveryMiddleware 恐慌恢复中间件
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				response.ServerError(c, "系统内部错误")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
