package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatuz-park/gym-now-back/internal/config"
	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Session is the result of a successful login or signup.
type Session struct {
	Token  string
	User   *domain.User
	Client *domain.Client // nil for staff
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*Session, error)
	// SignUp is the self-service path of client creation.
	SignUp(ctx context.Context, input ClientInput) (*Session, error)
	Me(ctx context.Context, userID primitive.ObjectID) (*domain.User, *domain.Client, error)
	CreateStaff(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error)
	// EnsureOwner creates the bootstrap owner unless its username is taken.
	EnsureOwner(ctx context.Context, cfg config.BootstrapConfig) error
}

type authService struct {
	userRepo   repository.UserRepository
	clientRepo repository.ClientRepository
	clients    ClientService
	tokens     TokenManager
	hashCost   int
	log        *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, clientRepo repository.ClientRepository, clients ClientService, tokens TokenManager, log *zap.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		clientRepo: clientRepo,
		clients:    clients,
		tokens:     tokens,
		hashCost:   bcrypt.DefaultCost,
		log:        log,
	}
}

func (s *authService) Login(ctx context.Context, username, password string) (*Session, error) {
	// usernames are stored lowercased
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, validationError("username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{User: user}
	if user.IsClient() {
		client, err := s.clientRepo.GetByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNoClientProfile
			}
			return nil, err
		}
		session.Client = client
	}

	session.Token, err = s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	s.log.Info("login", zap.String("user_id", user.ID.Hex()), zap.String("role", string(user.Role)))
	return session, nil
}

func (s *authService) SignUp(ctx context.Context, input ClientInput) (*Session, error) {
	// Self-service signups may not adopt somebody else's identity.
	input.UserID = nil

	client, user, err := s.clients.CreateClient(ctx, input)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{Token: token, User: user, Client: client}, nil
}

func (s *authService) Me(ctx context.Context, userID primitive.ObjectID) (*domain.User, *domain.Client, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrIdentityNotFound
		}
		return nil, nil, err
	}
	if !user.IsClient() {
		return user, nil, nil
	}
	client, err := s.clientRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return user, nil, nil
		}
		return nil, nil, err
	}
	return user, client, nil
}

func (s *authService) CreateStaff(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, validationError("username, email and password are required")
	}
	if !domain.ValidStaffRole(role) {
		return nil, validationError("role must be owner or trainer, got %q", role)
	}
	if len(password) < 8 {
		return nil, validationError("password must have at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if _, err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w (%s)", ErrIdentityExists, repository.DuplicateField(err))
		}
		return nil, err
	}

	s.log.Info("staff_created", zap.String("user_id", user.ID.Hex()), zap.String("role", string(role)))
	return user, nil
}

func (s *authService) EnsureOwner(ctx context.Context, cfg config.BootstrapConfig) error {
	if cfg.OwnerUsername == "" {
		return nil
	}
	exists, err := s.userRepo.UsernameExists(ctx, strings.ToLower(cfg.OwnerUsername))
	if err != nil {
		return err
	}
	if exists {
		s.log.Debug("bootstrap_owner_present", zap.String("username", cfg.OwnerUsername))
		return nil
	}
	_, err = s.CreateStaff(ctx, cfg.OwnerUsername, cfg.OwnerEmail, cfg.OwnerPassword, domain.RoleOwner)
	if err != nil {
		return fmt.Errorf("bootstrap owner: %w", err)
	}
	return nil
}
