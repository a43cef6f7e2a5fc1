package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradesim/internal/bridge"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const accountContextKey = "AccountID"

// SessionClaims represents JWT claims for an authenticated terminal session.
type SessionClaims struct {
	Account string `json:"acct"`
	jwt.RegisteredClaims
}

func generateToken(account, secret string, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		Account: account,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenStr, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims.Account, nil
	}
	return "", errors.New("invalid token claims")
}

// AuthMiddleware enforces JWT auth for protected routes.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "MISSING_TOKEN",
				"error": "missing Authorization header",
			})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_AUTH_HEADER",
				"error": "invalid Authorization header",
			})
			return
		}

		account, err := parseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_TOKEN",
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(accountContextKey, account)
		c.Next()
	}
}

// CurrentAccount returns the authenticated account number from context.
func CurrentAccount(c *gin.Context) string {
	if v, ok := c.Get(accountContextKey); ok {
		if id, okCast := v.(string); okCast {
			return id
		}
	}
	return ""
}

// login forwards terminal credentials to the bridge and issues a session
// token when the terminal accepts them.
func (s *Server) login(c *gin.Context) {
	var req struct {
		Account  int64  `json:"account"`
		Password string `json:"password"`
		Server   string `json:"server"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}
	req.Server = strings.TrimSpace(req.Server)
	if req.Account <= 0 || req.Password == "" || req.Server == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_CREDENTIALS",
			"error": "account, password and server are required",
		})
		return
	}

	info, err := s.Bridge.Login(c.Request.Context(), req.Account, req.Password, req.Server)
	if err != nil {
		var bridgeErr *bridge.Error
		if errors.As(err, &bridgeErr) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":  "LOGIN_REJECTED",
				"error": bridgeErr.Message,
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"code":  "BRIDGE_UNAVAILABLE",
			"error": err.Error(),
		})
		return
	}

	s.Store.Login(info)

	expiresAt := time.Now().Add(72 * time.Hour)
	token, err := generateToken(strconv.FormatInt(info.AccountNumber, 10), s.JWTSecret, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        token,
		"expires_at":   expiresAt.UTC().Format(time.RFC3339),
		"account_info": info,
	})
}

// logout clears the persisted session and stops any live indicator streams.
func (s *Server) logout(c *gin.Context) {
	s.Streams.StopAll()
	s.Store.Logout()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
