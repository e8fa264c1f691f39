package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const (
	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 6

	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
)

const (
	defaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "ridehail"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IdentityOptions configures token signing and password hashing.
type IdentityOptions struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
}

// IdentityService handles accounts and sessions.
type IdentityService struct {
	userRepo   repository.UserRepository
	driverRepo repository.DriverRepository
	txr        repository.Transactor
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// NewIdentityService creates a new IdentityService. With a nil txr the
// account and driver profile are written without a transaction.
func NewIdentityService(
	userRepo repository.UserRepository,
	driverRepo repository.DriverRepository,
	txr repository.Transactor,
	opts IdentityOptions,
	logger *zap.Logger,
) *IdentityService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		userRepo:   userRepo,
		driverRepo: driverRepo,
		txr:        txr,
		secret:     opts.Secret,
		tokenTTL:   opts.TokenTTL,
		bcryptCost: opts.BcryptCost,
		logger:     logger,
	}
}

// sessionClaims is the JWT payload of a signed-in user.
type sessionClaims struct {
	UserType domain.UserType `json:"user_type"`
	jwt.RegisteredClaims
}

// RegisterRequest contains the parameters for creating an account.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Phone    string
	UserType domain.UserType
	Car      domain.Car // drivers only
}

// Register creates an account. Drivers also get an offline driver profile.
func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(req.Password) > MaxPasswordLength {
		return nil, ErrPasswordTooLong
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if !req.UserType.Valid() {
		return nil, ErrInvalidUserType
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Name:         name,
		UserType:     req.UserType,
		Rating:       domain.DefaultUserRating,
		Preferences:  domain.DefaultPreferences(),
		PasswordHash: string(hash),
		CreatedAt:    now,
	}

	err = s.withinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}

		if user.UserType != domain.UserTypeDriver {
			return nil
		}
		driver := &domain.Driver{
			ID:        user.ID,
			Name:      user.Name,
			Phone:     user.Phone,
			Rating:    domain.DefaultUserRating,
			Car:       req.Car,
			UpdatedAt: now,
		}
		if err := repos.Drivers.Create(ctx, driver); err != nil {
			return fmt.Errorf("create driver profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("user_type", string(user.UserType)),
	)

	return user, nil
}

// SignInResponse contains the profile and bearer token of a new session.
type SignInResponse struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// SignIn checks credentials and issues a signed session token.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*SignInResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &sessionClaims{
		UserType: user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &SignInResponse{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Authenticate verifies a bearer token and returns the session it carries.
func (s *IdentityService) Authenticate(tokenString string) (Session, error) {
	if tokenString == "" {
		return Session{}, ErrNotAuthenticated
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return Session{}, ErrNotAuthenticated
	}

	session := Session{UserID: claims.Subject, UserType: claims.UserType}
	if !session.Valid() {
		return Session{}, ErrNotAuthenticated
	}
	return session, nil
}

// Profile returns the caller's account.
func (s *IdentityService) Profile(ctx context.Context, session Session) (*domain.User, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, session.UserID)
}

// UpdatePreferences replaces the caller's app settings.
func (s *IdentityService) UpdatePreferences(ctx context.Context, session Session, prefs domain.Preferences) (*domain.User, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	defaults := domain.DefaultPreferences()
	if prefs.Language == "" {
		prefs.Language = defaults.Language
	}
	if prefs.Currency == "" {
		prefs.Currency = defaults.Currency
	}

	if err := s.userRepo.UpdatePreferences(ctx, session.UserID, prefs); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, session.UserID)
}

func (s *IdentityService) withinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if s.txr == nil {
		return fn(repository.Repositories{Users: s.userRepo, Drivers: s.driverRepo})
	}
	return s.txr.WithinTx(ctx, fn)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
