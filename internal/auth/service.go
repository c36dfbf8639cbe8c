package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/database/users"
	"github.com/mrlokans/ebooklib/internal/entities"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const maxNameLength = 100

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed login attempts")
	ErrNameRequired       = errors.New("name is required")
	ErrNameTooLong        = errors.New("name must be at most 100 characters")
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailInvalid       = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(user *entities.User) error
	GetByID(id uint) (*entities.User, error)
	GetByEmail(email string) (*entities.User, error)
	SetRole(id uint, role entities.UserRole) error
	MarkLoginSuccess(id uint, at time.Time) error
	MarkLoginFailure(id uint, maxAttempts int, lockout time.Duration, at time.Time) (int, error)
}

var _ UserStore = (*users.Repository)(nil)

// Service handles registration, credential checks and token resolution.
type Service struct {
	users  UserStore
	tokens *TokenIssuer
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(store UserStore, tokens *TokenIssuer, cfg config.Auth) *Service {
	return &Service{
		users:  store,
		tokens: tokens,
		config: cfg,
		now:    time.Now,
	}
}

func validateRegistration(name, email, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return ErrNameRequired
	case utf8.RuneCountInString(name) > maxNameLength:
		return ErrNameTooLong
	case email == "":
		return ErrEmailRequired
	case utf8.RuneCountInString(email) > 100 || !emailPattern.MatchString(email):
		return ErrEmailInvalid
	case password == "":
		return ErrPasswordRequired
	}
	return ValidatePassword(password)
}

// Register creates a regular user account.
func (s *Service) Register(name, email, password string) (*entities.User, error) {
	return s.createUser(name, email, password, entities.UserRoleUser)
}

func (s *Service) createUser(name, email, password string, role entities.UserRole) (*entities.User, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin creates an admin account, or promotes the existing account with that email.
// The boolean reports whether a new account was created.
func (s *Service) EnsureAdmin(name, email, password string) (*entities.User, bool, error) {
	existing, err := s.users.GetByEmail(email)
	switch {
	case err == nil:
		if err := s.users.SetRole(existing.ID, entities.UserRoleAdmin); err != nil {
			return nil, false, fmt.Errorf("failed to promote user: %w", err)
		}
		existing.Role = entities.UserRoleAdmin
		return existing, false, nil
	case errors.Is(err, users.ErrNotFound):
		user, err := s.createUser(name, email, password, entities.UserRoleAdmin)
		return user, err == nil, err
	default:
		return nil, false, err
	}
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		maxAttempts := s.config.MaxLoginAttempts
		if maxAttempts <= 0 {
			maxAttempts = 5
		}
		lockout := s.config.LockoutDuration
		if lockout <= 0 {
			lockout = 30 * time.Minute
		}
		if _, markErr := s.users.MarkLoginFailure(user.ID, maxAttempts, lockout, now); markErr != nil {
			return nil, fmt.Errorf("failed to record login failure: %w", markErr)
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.users.MarkLoginSuccess(user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	return user, nil
}

// IssueToken returns a signed access token for the user.
func (s *Service) IssueToken(user *entities.User) (string, error) {
	token, _, err := s.tokens.Issue(user)
	return token, err
}

// UserFromToken resolves the user an access token was issued to.
// Tokens for deleted users or users whose email changed are rejected.
func (s *Service) UserFromToken(token string) (*entities.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !strings.EqualFold(user.Email, claims.Subject) {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
