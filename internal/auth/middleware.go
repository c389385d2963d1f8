package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"solsub-admin/internal/database"
	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/models"
	"solsub-admin/internal/sessions"
	"solsub-admin/internal/web"
	"solsub-admin/pkg/utils"
)

// Context keys populated for authenticated requests.
const (
	ContextAdminID   = "admin_id"
	ContextSessionID = "session_id"
	ContextToken     = "token"
)

var (
	errNoToken        = errors.New("no authorization token provided")
	errTokenRevoked   = errors.New("token has been revoked")
	errSessionExpired = errors.New("session has ended")
	errAdminInactive  = errors.New("admin not found or disabled")
)

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie
	}
	return ""
}

// authenticate resolves the signed-in admin and stores it on the context.
func authenticate(c *gin.Context) error {
	tokenString := tokenFromRequest(c)
	if tokenString == "" {
		return errNoToken
	}

	if IsTokenBlacklisted(database.DB, tokenString) {
		return errTokenRevoked
	}

	claims, err := ParseToken(tokenString)
	if err != nil {
		return err
	}

	if sm := sessions.GlobalManager; sm != nil {
		ok, err := sm.Exists(claims.SessionID())
		if err != nil {
			logrus.WithError(err).Warn("Session lookup failed; rejecting request")
			return errSessionExpired
		}
		if !ok {
			return errSessionExpired
		}
	}

	if database.DB == nil {
		return errAdminInactive
	}
	var admin models.AdminUser
	if err := database.DB.First(&admin, claims.AdminID).Error; err != nil || !admin.Active {
		return errAdminInactive
	}

	c.Set(ContextAdminID, admin.ID)
	c.Set(web.AdminEmailKey, admin.Email)
	c.Set(ContextSessionID, claims.SessionID())
	c.Set(ContextToken, tokenString)
	if csrf, err := c.Cookie(CSRFCookieName); err == nil {
		c.Set(web.CSRFTokenKey, csrf)
	}
	return nil
}

// RequirePage guards HTML pages, sending anonymous visitors to the login
// form with a return path.
func RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticate(c); err != nil {
			if !errors.Is(err, errNoToken) {
				ClearAuthCookie(c)
			}
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAPI guards JSON endpoints with a 401 response.
func RequireAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if err := authenticate(c); err != nil {
			utils.SendErrorResponse(c, http.StatusUnauthorized,
				apperrors.WithDetails(apperrors.ErrUnauthorized, err.Error(), err))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentAdminID returns the authenticated admin id, or zero.
func CurrentAdminID(c *gin.Context) uint {
	return c.GetUint(ContextAdminID)
}
