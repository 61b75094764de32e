package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evenup/evenup/internal/auth"
	"github.com/evenup/evenup/internal/middleware"
	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
	"github.com/evenup/evenup/pkg/mail"
)

// AuthService implements registration, OTP verification, the token
// endpoints and user profile management.
type AuthService struct {
	store         storage.Store
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	blacklist     auth.Blacklist
	mailer        mail.Sender
}

// NewAuthService creates a new authentication service.
func NewAuthService(store storage.Store, authenticator auth.Authenticator, jwtManager *auth.JWTManager, blacklist auth.Blacklist, mailer mail.Sender) *AuthService {
	return &AuthService{
		store:         store,
		authenticator: authenticator,
		jwtManager:    jwtManager,
		blacklist:     blacklist,
		mailer:        mailer,
	}
}

// RegisterRoutes mounts the auth endpoints under the given router.
func (s *AuthService) RegisterRoutes(api fiber.Router, requireAuth fiber.Handler) {
	user := api.Group("/user")
	user.Post("/register", s.Register)
	user.Post("/verify-otp", s.VerifyOTP)
	user.Post("/generate-otp", s.GenerateOTP)
	user.Post("/login", s.Login)
	user.Post("/refresh-token", s.RefreshToken)
	user.Get("/forgot-password", s.ForgotPasswordOTP)
	user.Post("/forgot-password", s.ForgotPasswordReset)

	user.Post("/logout", requireAuth, s.Logout)
	user.Post("/reset-password", requireAuth, s.ResetPassword)
	user.Post("/user-info", requireAuth, s.CreateUserInfo)
	user.Get("/user-info", requireAuth, s.GetUserInfo)
	user.Put("/user-info", requireAuth, s.UpdateUserInfo)
	user.Delete("/delete-account", requireAuth, s.DeleteAccount)
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// Register creates an inactive account and emails a verification OTP.
// Registering an existing inactive email just resends a fresh code.
func (s *AuthService) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	existing, err := s.store.GetUserByEmail(c.Context(), req.Email)
	if err == nil && existing.Active {
		return badRequest(c, "Email already exists")
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fail(c, err)
	}

	if existing != nil {
		// Inactive account: resend a fresh code instead of re-creating.
		if err := s.sendOTP(c, req.Email, "Email Verification"); err != nil {
			return fail(c, err)
		}
		slog.Info("verification OTP resent", "email", req.Email)
		return c.JSON(fiber.Map{"message": "OTP sent to the email, please verify"})
	}

	user, err := s.authenticator.Register(c.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		slog.Warn("registration failed", "email", req.Email, "error", err)
		return fail(c, err)
	}

	if err := s.sendOTP(c, req.Email, "Email Verification"); err != nil {
		return fail(c, err)
	}

	slog.Info("user registered", "user_id", user.ID, "email", user.Email)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully, OTP sent to the email, please verify",
	})
}

// sendOTP generates a fresh code, delivers it and persists it only
// after delivery succeeded, so a failed send never invalidates a code
// the user already holds.
func (s *AuthService) sendOTP(c *fiber.Ctx, email, subject string) error {
	code := auth.GenerateOTP()
	if err := s.mailer.Send(email, subject, fmt.Sprintf("Your verification code is %s", code)); err != nil {
		slog.Error("failed to send OTP email", "email", email, "error", err)
		return ErrEmailDelivery
	}
	return s.store.UpsertOTP(c.Context(), email, code)
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP checks the submitted code and activates the account. Codes
// expire ten minutes after they were last written.
func (s *AuthService) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := s.store.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		return fail(c, ErrNotRegistered)
	}
	if user.Active {
		return fail(c, ErrAlreadyVerified)
	}

	otp, err := s.store.GetOTP(c.Context(), req.Email)
	if err != nil {
		return fail(c, ErrNotRegistered)
	}
	if otp.Code != req.OTP {
		return fail(c, ErrOTPMismatch)
	}
	if auth.OTPExpired(otp.UpdatedAt, time.Now()) {
		return fail(c, ErrOTPExpired)
	}

	user.Active = true
	if err := s.store.UpdateUser(c.Context(), user); err != nil {
		return fail(c, err)
	}
	if err := s.store.DeleteOTP(c.Context(), req.Email); err != nil {
		return fail(c, err)
	}

	slog.Info("user verified", "user_id", user.ID, "email", user.Email)
	return c.JSON(fiber.Map{"message": "Verified successfully"})
}

type emailRequest struct {
	Email string `json:"email"`
}

// GenerateOTP resends a verification code to an unverified account.
func (s *AuthService) GenerateOTP(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return badRequest(c, "enter a valid email")
	}

	user, err := s.store.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		return badRequest(c, "user does not exist, please register first")
	}
	if user.Active {
		return fail(c, ErrAlreadyVerified)
	}

	if err := s.sendOTP(c, req.Email, "Email Verification"); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "OTP sent to the email, please verify"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an active user and issues a token pair.
func (s *AuthService) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	user, err := s.authenticator.Authenticate(c.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("login failed", "email", req.Email, "error", err)
		return fail(c, err)
	}

	pair, err := s.jwtManager.GeneratePair(user)
	if err != nil {
		return fail(c, err)
	}

	slog.Info("user logged in", "user_id", user.ID)
	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken rotates a valid, non-revoked refresh token into a new pair.
// The old refresh token is revoked so it cannot be replayed.
func (s *AuthService) RefreshToken(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	claims, err := s.jwtManager.Validate(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		return fail(c, err)
	}

	revoked, err := s.blacklist.TokenRevoked(c.Context(), claims.ID)
	if err != nil {
		return fail(c, err)
	}
	if revoked {
		return fail(c, auth.ErrRevokedToken)
	}

	user, err := s.store.GetUserByID(c.Context(), claims.UserID)
	if err != nil || !user.Active {
		return fail(c, auth.ErrInvalidToken)
	}

	// Generate before revoking: if signing fails the presented token
	// stays valid and the client can retry.
	pair, err := s.jwtManager.GeneratePair(user)
	if err != nil {
		return fail(c, err)
	}
	if err := s.blacklist.RevokeToken(c.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Logout revokes the presented refresh token for its remaining lifetime.
func (s *AuthService) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	claims, err := s.jwtManager.Validate(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		return fail(c, err)
	}
	if err := s.blacklist.RevokeToken(c.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		return fail(c, err)
	}

	slog.Info("user logged out", "user_id", claims.UserID)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// ForgotPasswordOTP emails a reset code to an existing account.
func (s *AuthService) ForgotPasswordOTP(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return badRequest(c, "email query parameter is required")
	}

	if _, err := s.store.GetUserByEmail(c.Context(), email); err != nil {
		return badRequest(c, "user does not exist")
	}

	if err := s.sendOTP(c, email, "Forgot Password OTP"); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "OTP sent to the email, please verify"})
}

type forgotPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// ForgotPasswordReset replaces the password on a valid reset code.
// Reset codes expire on the same ten-minute window as verification
// codes.
func (s *AuthService) ForgotPasswordReset(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	otp, err := s.store.GetOTP(c.Context(), req.Email)
	if err != nil || otp.Code != req.OTP {
		return badRequest(c, "invalid OTP")
	}
	if auth.OTPExpired(otp.UpdatedAt, time.Now()) {
		return fail(c, ErrOTPExpired)
	}

	user, err := s.store.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		return fail(c, err)
	}
	if err := s.authenticator.SetCredential(c.Context(), user, req.NewPassword); err != nil {
		return fail(c, err)
	}
	if err := s.store.DeleteOTP(c.Context(), req.Email); err != nil {
		return fail(c, err)
	}

	slog.Info("password reset via OTP", "user_id", user.ID)
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

type resetPasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ResetPassword changes the authenticated user's password.
func (s *AuthService) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.OldPassword == req.NewPassword {
		return badRequest(c, "new password should be different from the old password")
	}

	user, err := s.store.GetUserByID(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	if err := s.authenticator.VerifyCredential(user, req.OldPassword); err != nil {
		return badRequest(c, "old password is incorrect")
	}
	if err := s.authenticator.SetCredential(c.Context(), user, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been changed successfully"})
}

type userInfoRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	DateOfBirth   string `json:"date_of_birth"`
	PhoneNumber   string `json:"phone_number"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	StateProvince string `json:"state_province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Bio           string `json:"bio"`
}

func userInfoResponse(info *models.UserInfo) fiber.Map {
	return fiber.Map{
		"first_name":     info.FirstName,
		"last_name":      info.LastName,
		"date_of_birth":  info.DateOfBirth,
		"phone_number":   info.PhoneNumber,
		"street_address": info.StreetAddress,
		"city":           info.City,
		"state_province": info.StateProvince,
		"postal_code":    info.PostalCode,
		"country":        info.Country,
		"bio":            info.Bio,
	}
}

// CreateUserInfo stores the caller's profile.
func (s *AuthService) CreateUserInfo(c *fiber.Ctx) error {
	var req userInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	info := &models.UserInfo{
		UserID:        middleware.UserID(c),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		DateOfBirth:   req.DateOfBirth,
		PhoneNumber:   req.PhoneNumber,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		StateProvince: req.StateProvince,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
		Bio:           req.Bio,
	}
	if err := s.store.CreateUserInfo(c.Context(), info); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "User info created successfully",
		"user_info": userInfoResponse(info),
	})
}

// GetUserInfo returns the caller's profile.
func (s *AuthService) GetUserInfo(c *fiber.Ctx) error {
	info, err := s.store.GetUserInfo(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":   "User info retrieved successfully",
		"user_info": userInfoResponse(info),
	})
}

// UpdateUserInfo applies a partial update to the caller's profile.
func (s *AuthService) UpdateUserInfo(c *fiber.Ctx) error {
	info, err := s.store.GetUserInfo(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}

	var req map[string]string
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req) == 0 {
		return badRequest(c, "no data provided for update")
	}

	fields := map[string]*string{
		"first_name":     &info.FirstName,
		"last_name":      &info.LastName,
		"date_of_birth":  &info.DateOfBirth,
		"phone_number":   &info.PhoneNumber,
		"street_address": &info.StreetAddress,
		"city":           &info.City,
		"state_province": &info.StateProvince,
		"postal_code":    &info.PostalCode,
		"country":        &info.Country,
		"bio":            &info.Bio,
	}
	for key, value := range req {
		if dst, ok := fields[key]; ok {
			*dst = value
		}
	}

	if err := s.store.UpdateUserInfo(c.Context(), info); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User info updated successfully"})
}

// DeleteAccount soft-deletes the caller's account.
func (s *AuthService) DeleteAccount(c *fiber.Ctx) error {
	user, err := s.store.GetUserByID(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	user.Active = false
	if err := s.store.UpdateUser(c.Context(), user); err != nil {
		return fail(c, err)
	}

	slog.Info("account deactivated", "user_id", user.ID)
	return c.SendStatus(fiber.StatusNoContent)
}
