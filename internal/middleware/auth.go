package middleware

import (
	"encoding/gob"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/moviesite/internal/model"
)

// SessionKey session 中保存登录用户的键
const SessionKey = "userinfo"

const (
	userKey    = "user"
	apiUserKey = "api_user_id"
)

func init() {
	// 注册 Session 模型
	gob.Register(model.SessionUser{})
}

// Claims JWT 声明
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// UserFinder 按 ID 加载用户
type UserFinder interface {
	FindByID(id uint) (*model.User, error)
}

// LoadUser 从 session 恢复登录用户；用户已被删除时清空 session
func LoadUser(users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		su, ok := session.Get(SessionKey).(model.SessionUser)
		if ok && su.ID > 0 {
			user, err := users.FindByID(su.ID)
			if err == nil && user != nil {
				c.Set(userKey, user)
			} else if err == nil {
				session.Delete(SessionKey)
				session.Save()
			}
		}
		c.Next()
	}
}

// Login 将用户写入 session
func Login(c *gin.Context, user *model.User) error {
	session := sessions.Default(c)
	session.Set(SessionKey, model.SessionUser{
		ID:       user.ID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
	})
	c.Set(userKey, user)
	return session.Save()
}

// Logout 清空 session
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	c.Set(userKey, (*model.User)(nil))
	return session.Save()
}

// CurrentUser 当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}

// IsStaff 当前用户是否为管理人员
func IsStaff(c *gin.Context) bool {
	user := CurrentUser(c)
	return user != nil && user.IsStaff
}

// LoginURL 带 next 参数的登录地址
func LoginURL(next string) string {
	return "/login/?next=" + url.QueryEscape(next)
}

// RequireLogin 必须登录中间件，未登录重定向到登录页
func RequireLogin() gin.HandlerFunc {
	return RequireLoginTo(func(c *gin.Context) string {
		return c.Request.URL.RequestURI()
	})
}

// RequireLoginTo 同 RequireLogin，登录后跳转到 next 返回的地址。
// 用于只接受 POST 的路由。
func RequireLoginTo(next func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, LoginURL(next(c)))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff 管理人员权限中间件，非管理人员交给 deny 处理
func RequireStaff(deny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsStaff(c) {
			deny(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireToken API 鉴权，要求 Authorization: Bearer <token>
func RequireToken(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "未登录或 Token 无效",
				"data":    nil,
				"success": false,
			})
			c.Abort()
			return
		}
		c.Set(apiUserKey, claims.UserID)
		c.Next()
	}
}

// APIUserID API 请求的用户 ID（未鉴权返回 0）
func APIUserID(c *gin.Context) uint {
	if v, ok := c.Get(apiUserKey); ok {
		return v.(uint)
	}
	return 0
}

// extractClaims 从 Authorization Header 中提取 JWT Claims
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, jwt.ErrTokenMalformed
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	// 解析 Token
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// GenerateToken 生成 JWT Token
func GenerateToken(user *model.User, jwtSecret string, expiry time.Duration) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// SafeRedirect 只允许站内相对路径，其余返回 fallback
func SafeRedirect(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
