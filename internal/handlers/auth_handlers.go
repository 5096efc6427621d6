package handlers

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"healthcare_app_echo/internal/config"
	appMiddleware "healthcare_app_echo/internal/middleware"
	"healthcare_app_echo/internal/models"
	"healthcare_app_echo/internal/services"
)

// AuthHandler handles registration, login, OTP verification, password
// resets and OAuth sign-in (delegated to Firebase)
type AuthHandler struct {
	db           *gorm.DB
	cache        *services.RedisCache
	emailService *services.EmailService
	authClient   *auth.Client
	cfg          *config.Config
}

func NewAuthHandler(db *gorm.DB, cache *services.RedisCache, emailService *services.EmailService, authClient *auth.Client, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cache: cache, emailService: emailService, authClient: authClient, cfg: cfg}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=4"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type oauthLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// Register creates an unverified account and emails a 4-digit OTP
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if h.cache == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Registration is temporarily unavailable")
	}

	var existing models.User
	err := h.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "User already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up user")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to process password")
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hashed),
		Provider:     models.AuthProviderLocal,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register user")
	}

	otp := fmt.Sprintf("%04d", 1000+rand.Intn(9000))
	if err := h.cache.StoreOTP(c.Request().Context(), req.Email, otp); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store verification code")
	}

	if err := h.emailService.SendOTP(req.Email, req.Name, otp); err != nil {
		log.Printf("Failed to send OTP email to %s: %v", req.Email, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to send verification email")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "User Registered Successfully. An OTP has been sent to your email.",
	})
}

// VerifyOTP checks the emailed code, marks the user verified and issues a
// session token
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if h.cache == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Verification is temporarily unavailable")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "User not found")
	}

	ok, err := h.cache.CheckOTP(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to verify OTP")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid OTP")
	}

	if err := h.db.Model(&user).Update("is_verified", true).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to verify user")
	}

	token, err := h.issueToken(user, time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "OTP verified successfully",
		"token":   token,
	})
}

// Login authenticates a verified local account
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "User not found")
	}

	if !user.IsVerified {
		return echo.NewHTTPError(http.StatusBadRequest, "Please verify your email before logging in.")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid credentials")
	}

	token, err := h.issueToken(user, time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// ForgotPassword emails a short-lived reset link
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	token, err := h.issueToken(user, 15*time.Minute)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create reset token")
	}

	resetLink := fmt.Sprintf("%s/reset-password/%s", h.cfg.FrontendURL, token)
	if err := h.emailService.SendPasswordReset(req.Email, resetLink); err != nil {
		log.Printf("Failed to send reset email to %s: %v", req.Email, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to send reset email")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Password reset link has been sent to your email.",
	})
}

// ResetPassword consumes the reset token and stores the new password
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	tokenString := c.Param("token")

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	claims := &appMiddleware.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid or expired token.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to process password")
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", claims.UserID).
		Update("password_hash", string(hashed)).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to reset password")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Password reset successful. You can now log in.",
	})
}

// OAuthLogin verifies a Firebase ID token obtained from a third-party
// provider sign-in (Google, GitHub), upserts the user and issues an app
// session token
func (h *AuthHandler) OAuthLogin(c echo.Context) error {
	if h.authClient == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "OAuth sign-in is not configured")
	}

	var req oauthLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	decoded, err := h.authClient.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication failed. Please try again.")
	}

	email, _ := decoded.Claims["email"].(string)
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "OAuth provider did not supply an email")
	}
	name, _ := decoded.Claims["name"].(string)

	var user models.User
	err = h.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Name:       name,
			Email:      email,
			Provider:   models.AuthProviderFirebase,
			IsVerified: true,
		}
		if err := h.db.Create(&user).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
		}
	} else if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up user")
	}

	token, err := h.issueToken(user, 24*time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) issueToken(user models.User, ttl time.Duration) (string, error) {
	claims := appMiddleware.AppClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}
