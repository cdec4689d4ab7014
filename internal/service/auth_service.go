package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"city_parking/internal/domain"
	"city_parking/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)

// AuthService is the identity layer that turns credentials into tokens
// and tokens back into a domain.Caller for the engine services.
type AuthService struct {
	userRepo      repository.UserRepository
	adminRepo     repository.AdminRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(userRepo repository.UserRepository, adminRepo repository.AdminRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		adminRepo:     adminRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) Register(ctx context.Context, dto domain.RegisterUserDTO) (*domain.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: string(hashedPassword),
		FullName:     dto.FullName,
		PhoneNumber:  dto.PhoneNumber,
	}
	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	created.PasswordHash = ""
	return created, nil
}

// LoginUser authenticates against the users table and issues a token
// with the user role.
func (s *AuthService) LoginUser(ctx context.Context, dto domain.LoginDTO) (*domain.AuthResponseDTO, error) {
	user, err := s.userRepo.FindByUsername(ctx, dto.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		log.Printf("could not record last login for user %d: %v", user.ID, err)
	}

	token, err := s.issueToken(user.ID, user.Username, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponseDTO{Token: token, UserID: user.ID, Username: user.Username, Role: domain.RoleUser}, nil
}

// LoginAdmin authenticates against the admins table and issues a token
// with the admin role.
func (s *AuthService) LoginAdmin(ctx context.Context, dto domain.LoginDTO) (*domain.AuthResponseDTO, error) {
	admin, err := s.adminRepo.FindByUsername(ctx, dto.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up admin: %w", err)
	}
	if !admin.IsActive {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(dto.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID, time.Now().UTC()); err != nil {
		log.Printf("could not record last login for admin %d: %v", admin.ID, err)
	}

	token, err := s.issueToken(admin.ID, admin.Username, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponseDTO{Token: token, UserID: admin.ID, Username: admin.Username, Role: domain.RoleAdmin}, nil
}

func (s *AuthService) issueToken(id int, username string, role domain.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.Itoa(id),
		"exp":      now.Add(s.jwtExpiration).Unix(),
		"iat":      now.Unix(),
		"role":     string(role),
		"username": username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses the token and reconstructs the Caller it carries.
func (s *AuthService) ValidateToken(tokenString string) (domain.Caller, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return domain.Caller{}, fmt.Errorf("%w: malformed token", ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Caller{}, fmt.Errorf("%w: token expired", ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return domain.Caller{}, fmt.Errorf("%w: token not valid yet", ErrTokenInvalid)
		}
		return domain.Caller{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return domain.Caller{}, ErrTokenInvalid
	}

	sub, okSub := claims["sub"].(string)
	roleStr, okRole := claims["role"].(string)
	if !okSub || !okRole {
		return domain.Caller{}, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}
	id, err := strconv.Atoi(sub)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("%w: malformed subject claim", ErrTokenInvalid)
	}
	role := domain.Role(roleStr)
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return domain.Caller{}, fmt.Errorf("%w: unknown role '%s'", ErrTokenInvalid, roleStr)
	}
	return domain.Caller{ID: id, Role: role}, nil
}

// EnsureDefaultAdmin creates the bootstrap admin account when the
// configured username does not exist yet. A blank password skips the
// bootstrap entirely.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, email, password string) error {
	if password == "" {
		return nil
	}
	if _, err := s.adminRepo.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("looking up default admin: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing default admin password: %w", err)
	}
	_, err = s.adminRepo.Create(ctx, &domain.Admin{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		FullName:     "Default Administrator",
		IsSuperAdmin: true,
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicateEntry) {
		return fmt.Errorf("creating default admin: %w", err)
	}
	log.Printf("default admin '%s' ensured", username)
	return nil
}
