package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type LoginResult struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Authenticator exchanges email and password for a token.
type Authenticator struct {
	users  UserStore
	tokens *TokenManager
	logger *zap.Logger
}

func NewAuthenticator(users UserStore, tokens *TokenManager, logger *zap.Logger) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, logger: logger.Named("auth")}
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidInput("email and password are required")
	}

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		a.logger.Info("Login rejected", zap.String("user_id", user.ID))
		return nil, apperror.Unauthorized("invalid credentials")
	}

	token, exp, err := a.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, TokenType: "Bearer", ExpiresAt: exp, User: user}, nil
}

// CurrentUser loads the account behind an authenticated caller. A token for a
// deleted account is no longer accepted.
func (a *Authenticator) CurrentUser(ctx context.Context, caller models.Principal) (*models.User, error) {
	if caller.UserID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	user, err := a.users.GetByID(ctx, caller.UserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("account no longer exists")
	}
	return user, err
}

// EnsureAdmin creates the admin account unless the email is already taken.
func (a *Authenticator) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if _, err := a.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	err = a.users.Create(ctx, &models.User{
		ID:           uuid.NewString(),
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if errors.Is(err, apperror.ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	a.logger.Info("Admin account created", zap.String("email", email))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
