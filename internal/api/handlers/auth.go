package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/cargohitch/server/internal/api/middleware"
	"github.com/cargohitch/server/internal/auth"
	"github.com/cargohitch/server/internal/mailer"
	"github.com/cargohitch/server/internal/models"
	"github.com/cargohitch/server/internal/repositories"
	"github.com/cargohitch/server/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidatePassword enforces the strong policy: at least 8 characters with
// one uppercase letter, one lowercase letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		}
	}
	if !upper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !lower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !digit {
		return errors.New("password must contain at least one number")
	}
	return nil
}

type AuthHandler struct {
	users  repositories.UserRepository
	tokens *auth.TokenService
	mail   mailer.Mailer
	// base URL for verification / reset links in outgoing mail
	baseURL string
}

func NewAuthHandler(users repositories.UserRepository, tokens *auth.TokenService, mail mailer.Mailer, baseURL string) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, mail: mail, baseURL: baseURL}
}

func userProjection(user *models.User) map[string]any {
	return map[string]any{
		"id":          user.ID.String(),
		"email":       user.Email,
		"first_name":  user.FirstName,
		"last_name":   user.LastName,
		"phone":       user.Phone,
		"is_verified": user.IsVerified,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	email := repositories.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if !emailPattern.MatchString(email) {
		utils.JSONError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if err := ValidatePassword(input.Password); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.users.FindByEmail(email); err == nil {
		utils.JSONError(w, http.StatusConflict, "Email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
	}
	if err := h.users.Create(&user); err != nil {
		// The pre-check above can race a concurrent registration; the unique
		// index on email is the source of truth.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.JSONError(w, http.StatusConflict, "Email already registered")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Registration succeeds even when the mail relay is down; the response
	// message tells the two cases apart so the client can offer a resend.
	message := "User registered successfully. Please check your email to verify your account."
	if err := h.sendVerificationMail(email); err != nil {
		log.Printf("verification mail to %s failed: %v", email, err)
		message = "User registered successfully, but verification email failed to send. Please request a new one."
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: message,
		Data:    map[string]any{"user_id": user.ID.String()},
	})
}

func (h *AuthHandler) sendVerificationMail(email string) error {
	token, err := h.tokens.NewVerificationToken(email)
	if err != nil {
		return err
	}
	return h.mail.SendVerification(email, h.baseURL+"/api/auth/verify/"+token)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.Email == "" || input.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	// Unknown email and wrong password produce the same message so the
	// endpoint cannot be used to probe which addresses have accounts.
	user, err := h.users.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(w, http.StatusUnauthorized, "Invalid email or password")
		} else {
			utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !user.IsVerified {
		utils.JSONError(w, http.StatusUnauthorized, "Please verify your email before logging in")
		return
	}

	accessToken, err := h.tokens.NewAccessToken(user.ID, user.Email, input.RememberMe)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	data := map[string]any{
		"token": accessToken,
		"user":  userProjection(user),
	}
	if input.RememberMe {
		rememberToken, err := h.tokens.NewRememberToken(user.ID, user.Email)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}
		data["remember_token"] = rememberToken
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Login successful",
		Data:    data,
	})
}

// POST /api/auth/verify-token
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		utils.JSONError(w, http.StatusUnauthorized, "Token is missing")
		return
	}

	claims, err := h.tokens.Verify(token, auth.PurposeAccess)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	user, err := h.users.FindByEmail(claims.Email)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "User not found")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"valid": true,
			"user":  userProjection(user),
		},
	})
}

// POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		utils.JSONError(w, http.StatusUnauthorized, "Token is missing")
		return
	}

	// Only the long-lived remember token can mint new access tokens; an
	// access token presented here is refused outright.
	claims, err := h.tokens.Verify(token, auth.PurposeRemember)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Invalid token type for refresh")
		return
	}
	user, err := h.users.FindByEmail(claims.Email)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "User not found")
		return
	}

	accessToken, err := h.tokens.NewAccessToken(user.ID, user.Email, true)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"token": accessToken},
	})
}

// GET /api/auth/verify/{token}
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Verify(r.PathValue("token"), auth.PurposeVerification)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}

	user, err := h.users.FindByEmail(claims.Email)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "User not found")
		return
	}

	// Re-verifying an already-verified account is a success, not an error.
	if !user.IsVerified {
		if err := h.users.MarkVerified(claims.Email); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Email verified successfully! You can now log in.",
	})
}

// POST /api/auth/resend-verification
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		utils.JSONError(w, http.StatusBadRequest, "Email is required")
		return
	}

	user, err := h.users.FindByEmail(input.Email)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "Email not found")
		return
	}
	if user.IsVerified {
		utils.JSONError(w, http.StatusBadRequest, "Email is already verified")
		return
	}

	if err := h.sendVerificationMail(user.Email); err != nil {
		log.Printf("verification mail to %s failed: %v", user.Email, err)
		utils.JSONError(w, http.StatusInternalServerError, "Failed to send verification email")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Verification email sent successfully",
	})
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		utils.JSONError(w, http.StatusBadRequest, "Email is required")
		return
	}

	// Constant response whether or not the account exists.
	const response = "If the email exists, a password reset link has been sent"

	user, err := h.users.FindByEmail(input.Email)
	if err != nil {
		utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: response})
		return
	}

	token, err := h.tokens.NewPasswordResetToken(user.Email)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to send reset email")
		return
	}
	if err := h.mail.SendPasswordReset(user.Email, h.baseURL+"/api/auth/reset-password/"+token); err != nil {
		log.Printf("reset mail to %s failed: %v", user.Email, err)
		utils.JSONError(w, http.StatusInternalServerError, "Failed to send reset email")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: response})
}

// POST /api/auth/reset-password/{token}
//
// Known gap, kept on purpose: a reset replaces the password hash but does
// not revoke access tokens issued before it. They stay usable until expiry.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "New password is required")
		return
	}
	if err := ValidatePassword(input.Password); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := h.tokens.Verify(r.PathValue("token"), auth.PurposePasswordReset)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	user, err := h.users.FindByEmail(claims.Email)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := h.users.UpdatePassword(user.ID, string(hashed)); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Password reset successfully. You can now log in with your new password.",
	})
}

// POST /api/auth/change-password (authenticated)
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.Principal(r.Context())

	var input struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.CurrentPassword == "" || input.NewPassword == "" {
		utils.JSONError(w, http.StatusBadRequest, "Current password and new password are required")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)) != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}
	if err := ValidatePassword(input.NewPassword); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := h.users.UpdatePassword(user.ID, string(hashed)); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Password changed successfully",
	})
}
