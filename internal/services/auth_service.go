package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
	log        zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
		log:        log.With().Str("service", "auth").Logger(),
	}
}

// RegisterUser registers a new customer, hashes their password, and saves them to the database.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) error {
	if err := s.ensureAvailable(ctx, user.Username, user.Email); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)
	user.Role = models.RoleCustomer

	if err := s.userRepo.Create(ctx, user); err != nil {
		return storeErr("register user", err)
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username, email string) error {
	if existing, err := s.userRepo.GetByUsername(ctx, username); err == nil && existing != nil {
		return fmt.Errorf("username '%s' already taken: %w", username, ErrAlreadyRegistered)
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return storeErr("check username", err)
	}
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return fmt.Errorf("email '%s' already registered: %w", email, ErrAlreadyRegistered)
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return storeErr("check email", err)
	}
	return nil
}

// EnsureAdmin makes sure an administrator account named username exists, creating it or
// promoting an existing account.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			if err := s.userRepo.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return nil, storeErr("promote admin", err)
			}
			existing.Role = models.RoleAdmin
			s.log.Info().Str("username", username).Msg("existing user promoted to admin")
		}
		return existing, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, storeErr("look up admin", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &models.User{
		Username: username,
		Email:    email,
		FullName: "Administrator",
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return nil, storeErr("create admin", err)
	}
	s.log.Info().Str("username", username).Msg("admin account created")
	return admin, nil
}

// LoginUser authenticates a user and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		// Do not reveal whether the username exists.
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		s.log.Debug().Err(err).Msg("token validation failed")
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// IdentityFromClaims builds the caller identity carried by validated claims.
func IdentityFromClaims(claims jwt.MapClaims) models.Identity {
	userID, _ := claims["user_id"].(string)
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		role = string(models.RoleCustomer)
	}
	return models.Identity{UserID: userID, Username: username, Role: models.Role(role)}
}

// CurrentUser loads the account behind id.
func (s *AuthService) CurrentUser(ctx context.Context, id models.Identity) (*models.User, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, storeErr("get current user", err)
	}
	return user, nil
}
