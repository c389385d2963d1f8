package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"solsub-admin/internal/database"
	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/models"
	"solsub-admin/internal/sessions"
	"solsub-admin/internal/web"
	"solsub-admin/pkg/utils"
)

type loginRequest struct {
	Email    string `form:"email" json:"email" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	TOTPCode string `form:"totp_code" json:"totp_code"`
	Next     string `form:"next" json:"next"`
}

func wantsJSON(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEJSON || utils.WantsJSON(c)
}

// safeNext keeps redirects on this host.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if strings.HasPrefix(next, "/login") {
		return "/"
	}
	return next
}

func lockedError(user *models.AdminUser) error {
	remaining := time.Until(*user.LockedUntil)
	return apperrors.WithDetails(apperrors.ErrAccountLocked,
		fmt.Sprintf("Account locked until %s (%.0f minutes remaining)",
			user.LockedUntil.Format(time.RFC3339), remaining.Minutes()), nil)
}

// Login checks credentials and the optional TOTP code. Failures are counted
// toward the account lock.
func Login(db *gorm.DB, email, password, totpCode string) (*models.AdminUser, error) {
	if db == nil {
		return nil, apperrors.WithDetails(apperrors.ErrStoreUnavailable, "database not initialized", database.ErrNotInitialized)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	var user models.AdminUser
	if err := db.Where("email = ? AND active = ?", email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.WithDetails(apperrors.ErrStoreUnavailable, "failed to query admin", err)
	}

	if IsAccountLocked(&user) {
		return nil, lockedError(&user)
	}

	valid := CheckPassword(password, user.Password)
	if valid && user.MFAEnabled() {
		valid = totpCode != "" && ValidateTOTP(user.MFASecret, strings.TrimSpace(totpCode))
	}
	if !valid {
		if err := RecordFailedLogin(db, &user); err != nil {
			utils.HandleError(err, fmt.Sprintf("Failed to record failed login for %s", user.Email))
		}
		if IsAccountLocked(&user) {
			return nil, lockedError(&user)
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := RecordSuccessfulLogin(db, &user); err != nil {
		logrus.WithError(err).WithField("email", user.Email).Warn("Failed to record successful login")
	}
	return &user, nil
}

// HandleLoginPage renders the sign-in form
func HandleLoginPage(c *gin.Context) {
	web.Render(c, http.StatusOK, "login", gin.H{
		"Title": "Sign in",
		"Next":  safeNext(c.Query("next")),
	})
}

func loginFailed(c *gin.Context, req loginRequest, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(err, "INTERNAL_ERROR", "Internal server error")
	}
	status := utils.StatusFor(appErr)
	if status == http.StatusBadRequest {
		appErr = apperrors.WithDetails(apperrors.ErrValidationFailed, "Email and password are required", err)
	}

	if wantsJSON(c) {
		utils.SendErrorResponse(c, status, appErr)
		return
	}

	message := appErr.Message
	if appErr.Details != "" && status == http.StatusLocked {
		message = appErr.Details
	}
	if status >= http.StatusInternalServerError {
		utils.HandleError(appErr, "login")
		message = "Sign-in is temporarily unavailable"
	}
	web.Render(c, status, "login", gin.H{
		"Title": "Sign in",
		"Error": message,
		"Email": req.Email,
		"Next":  safeNext(req.Next),
	})
}

// HandleLogin accepts the form or a JSON body and starts a session
func HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		loginFailed(c, req, apperrors.WithDetails(apperrors.ErrValidationFailed, err.Error(), err))
		return
	}

	admin, err := Login(database.DB, req.Email, req.Password, req.TOTPCode)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"email":     req.Email,
			"client_ip": utils.GetClientIP(c),
		}).Warn("Login rejected")
		loginFailed(c, req, err)
		return
	}

	issued, err := GenerateToken(admin)
	if err != nil {
		loginFailed(c, req, apperrors.Wrap(err, "TOKEN_ERROR", "Failed to generate token"))
		return
	}

	if sm := sessions.GlobalManager; sm != nil {
		if err := sm.CreateSession(issued.SessionID, admin.ID, admin.Email, utils.GetClientIP(c), c.Request.UserAgent()); err != nil {
			loginFailed(c, req, apperrors.WithDetails(apperrors.ErrStoreUnavailable, "failed to store session", err))
			return
		}
	}

	SetAuthCookie(c, issued.Token, issued.ExpiresAt, issued.CSRFToken)
	c.Header("X-CSRF-Token", issued.CSRFToken)

	logrus.WithFields(logrus.Fields{
		"email":      admin.Email,
		"session_id": issued.SessionID,
	}).Info("Admin signed in")

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"message":     "Login successful",
			"admin":       gin.H{"id": admin.ID, "name": admin.Name, "email": admin.Email, "mfa_enabled": admin.MFAEnabled()},
			"csrf_token":  issued.CSRFToken,
			"expires_at":  issued.ExpiresAt.Unix(),
			"session_id":  issued.SessionID,
			"redirect_to": safeNext(req.Next),
		})
		return
	}
	c.Redirect(http.StatusSeeOther, safeNext(req.Next))
}

// HandleLogout revokes the current token and session
func HandleLogout(c *gin.Context) {
	tokenString := c.GetString(ContextToken)
	if tokenString == "" {
		tokenString = tokenFromRequest(c)
	}

	if tokenString != "" {
		if claims, err := ParseToken(tokenString); err == nil {
			if err := BlacklistToken(database.DB, tokenString, claims.AdminID, claims.ExpiresAt.Time, "logout"); err != nil {
				utils.HandleError(err, "blacklist token on logout")
			}
			if sm := sessions.GlobalManager; sm != nil {
				if err := sm.DeleteSession(claims.SessionID()); err != nil {
					logrus.WithError(err).Warn("Failed to delete session on logout")
				}
			}
		}
	}
	ClearAuthCookie(c)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}
