package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// IdentityProvisioner derives and links the login identity of a client.
//
// Provision does not open a transaction of its own: it must be called with
// the context of the transaction that creates or updates the client, so the
// username lookup, the identity insert and the link commit or fail together.
type IdentityProvisioner interface {
	Provision(ctx context.Context, client *domain.Client) (*domain.User, error)
}

type identityProvisioner struct {
	userRepo   repository.UserRepository
	clientRepo repository.ClientRepository
	hashCost   int
	now        func() time.Time
	log        *zap.Logger
}

func NewIdentityProvisioner(userRepo repository.UserRepository, clientRepo repository.ClientRepository, log *zap.Logger) IdentityProvisioner {
	return &identityProvisioner{
		userRepo:   userRepo,
		clientRepo: clientRepo,
		hashCost:   bcrypt.DefaultCost,
		now:        time.Now,
		log:        log,
	}
}

// Provision links an identity to client. When the client already references
// an identity that identity is kept and only its role is forced to client.
// Otherwise a new identity is created:
//
//	username = local part of the email, suffixed 1, 2, 3, ... until unused
//	password = fmt.Sprintf("%02d00", age at provisioning time)
func (p *identityProvisioner) Provision(ctx context.Context, client *domain.Client) (*domain.User, error) {
	if client.UserID != nil {
		return p.adopt(ctx, client)
	}

	base, err := domain.UsernameCandidate(client.Email)
	if err != nil {
		return nil, validationError("cannot derive a username from email %q", client.Email)
	}
	username, err := p.uniqueUsername(ctx, base)
	if err != nil {
		return nil, err
	}

	age := client.Age(p.now())
	hash, err := bcrypt.GenerateFromPassword([]byte(domain.DefaultPassword(age)), p.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}

	first, last := domain.SplitName(client.Name)
	user := &domain.User{
		Username:       username,
		Email:          client.Email,
		FirstName:      first,
		LastName:       last,
		PasswordHash:   string(hash),
		Role:           domain.RoleClient,
		ProvisionedAge: &age,
	}
	if _, err := p.userRepo.Create(ctx, user); err != nil {
		switch repository.DuplicateField(err) {
		case "username":
			// Committed by a concurrent provisioning after our lookup.
			return nil, errUsernameTaken
		case "email":
			return nil, ErrIdentityExists
		}
		return nil, err
	}

	if err := p.clientRepo.LinkUser(ctx, client.ID, user.ID); err != nil {
		return nil, p.linkError(err)
	}
	client.UserID = &user.ID

	p.log.Info("identity_provisioned",
		zap.String("client_id", client.ID.Hex()),
		zap.String("user_id", user.ID.Hex()),
		zap.String("username", username),
	)
	return user, nil
}

func (p *identityProvisioner) adopt(ctx context.Context, client *domain.Client) (*domain.User, error) {
	user, err := p.userRepo.GetByID(ctx, *client.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	if err := p.clientRepo.LinkUser(ctx, client.ID, user.ID); err != nil {
		return nil, p.linkError(err)
	}
	if user.Role != domain.RoleClient {
		if err := p.userRepo.SetRole(ctx, user.ID, domain.RoleClient); err != nil {
			return nil, err
		}
		p.log.Info("identity_role_forced",
			zap.String("user_id", user.ID.Hex()),
			zap.String("previous_role", string(user.Role)),
		)
		user.Role = domain.RoleClient
	}
	return user, nil
}

func (p *identityProvisioner) linkError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return ErrIdentityAlreadyLinked
	case errors.Is(err, repository.ErrNotFound):
		return ErrClientNotFound
	}
	return err
}

// uniqueUsername returns base, or base followed by the smallest positive
// integer that makes it unused.
func (p *identityProvisioner) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		exists, err := p.userRepo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
}
