package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/config"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	Me(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, id uuid.UUID, req dto.ChangePasswordRequest) error
	Technicians(ctx context.Context) ([]dto.UserResponse, error)

	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	ListUsers(ctx context.Context) ([]dto.UserResponse, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeactivateUser(ctx context.Context, actor Actor, id uuid.UUID) error
	ReactivateUser(ctx context.Context, id uuid.UUID) error
}

type authService struct {
	repo repository.UserRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewAuthService(repo repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg, now: time.Now}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}
	log.Info().Str("username", user.Username).Str("role", user.Role).Msg("user logged in")
	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: refresh token invalid or expired", ErrUnauthorized)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: malformed token", ErrUnauthorized)
	}
	if use, _ := claims["token_use"].(string); use != model.TokenRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrUnauthorized)
	}
	raw, _ := claims["user_id"].(string)
	uid, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed token", ErrUnauthorized)
	}

	user, err := s.repo.FindByID(ctx, uid)
	if err != nil || !user.IsActive {
		return nil, fmt.Errorf("%w: user not found or inactive", ErrUnauthorized)
	}
	return s.issueTokens(user)
}

func (s *authService) Me(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user", id.String())
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, id uuid.UUID, req dto.ChangePasswordRequest) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translate(err, "user", id.String())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return invalid("current password is incorrect")
	}
	if len(req.NewPassword) < 6 {
		return invalid("new password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return s.repo.Update(ctx, user)
}

func (s *authService) Technicians(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.ListActiveByRole(ctx, model.RoleTechnician)
	if err != nil {
		return nil, err
	}
	return usersToResponse(users), nil
}

// ── User administration ──────────────────────────────────────────────────────

func (s *authService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 3 || len(username) > 50 {
		return nil, invalid("username must be 3 to 50 characters")
	}
	if !isRole(req.Role) {
		return nil, invalid("unknown role %q", req.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Username:     username,
		PasswordHash: string(hash),
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, translate(err, "user", username)
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return usersToResponse(users), nil
}

func (s *authService) UpdateUser(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user", id.String())
	}
	if req.Name != "" {
		user.Name = strings.TrimSpace(req.Name)
	}
	if req.Role != "" {
		if !isRole(req.Role) {
			return nil, invalid("unknown role %q", req.Role)
		}
		user.Role = req.Role
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, translate(err, "user", id.String())
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) DeactivateUser(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.ID == id {
		return invalid("cannot deactivate your own account")
	}
	return translate(s.repo.SetActive(ctx, id, false), "user", id.String())
}

func (s *authService) ReactivateUser(ctx context.Context, id uuid.UUID) error {
	return translate(s.repo.SetActive(ctx, id, true), "user", id.String())
}

// ── Tokens ───────────────────────────────────────────────────────────────────

func (s *authService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	access, err := s.generateToken(user, model.TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(user, model.TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         userToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.User, use string, ttl time.Duration) (string, error) {
	if s.cfg.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":   user.ID.String(),
		"username":  user.Username,
		"name":      user.Name,
		"role":      user.Role,
		"token_use": use,
		"exp":       now.Add(ttl).Unix(),
		"iat":       now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func isRole(r string) bool {
	switch r {
	case model.RoleAdmin, model.RoleTechnician, model.RoleCashier:
		return true
	}
	return false
}

func userToResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func usersToResponse(users []model.User) []dto.UserResponse {
	out := make([]dto.UserResponse, len(users))
	for i := range users {
		out[i] = userToResponse(&users[i])
	}
	return out
}
