package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"
	"github.com/chatuz-park/gym-now-back/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxProvisionAttempts bounds how often client creation is retried when the
// derived username is taken between the lookup and the insert.
const maxProvisionAttempts = 3

const profileImageFolder = "clients"

// ClientInput carries the writable profile fields of a client.
type ClientInput struct {
	Name              string
	Email             string
	Phone             string
	BirthDate         time.Time
	Weight            float64
	Height            float64
	Goals             []string
	JoinDate          *time.Time // defaults to today on create
	SubscriptionType  domain.SubscriptionType
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
	Notes             string
	EmergencyContact  string
	MedicalConditions string
	// UserID links an existing identity instead of provisioning a new one.
	UserID *primitive.ObjectID
}

// ClientQuery holds listing filters. Ages are in full years and inclusive.
type ClientQuery struct {
	Search             string
	SubscriptionTypes  []domain.SubscriptionType
	SubscriptionStatus domain.SubscriptionStatus
	MinAge             *int
	MaxAge             *int
	HasIdentity        *bool
	HasGoals           *bool
	// HasRoutines and RoutineCount consider active assignments only.
	HasRoutines  *bool
	RoutineCount *int
}

// Credentials is the login data an operator hands out to a client.
type Credentials struct {
	ClientID   primitive.ObjectID
	ClientName string
	Username   string
	Email      string
	// DefaultPassword is empty when the identity was not provisioned from
	// this client (an existing identity was linked instead).
	DefaultPassword string
	Age             int
	BirthDate       time.Time
}

type ClientStatistics struct {
	Total                int
	ActiveSubscriptions  int
	ExpiredSubscriptions int
	WithIdentity         int
	BySubscriptionType   map[domain.SubscriptionType]int
	AverageAge           float64
	MinAge               int
	MaxAge               int
	AverageWeight        float64
	MinWeight            float64
	MaxWeight            float64
}

type ClientService interface {
	// CreateClient persists a client and provisions its identity in one
	// transaction. Nothing is persisted when either step fails.
	CreateClient(ctx context.Context, input ClientInput) (*domain.Client, *domain.User, error)
	GetClient(ctx context.Context, id primitive.ObjectID) (*domain.Client, error)
	GetClientByUser(ctx context.Context, userID primitive.ObjectID) (*domain.Client, error)
	ListClients(ctx context.Context, query ClientQuery) ([]domain.Client, error)
	UpdateClient(ctx context.Context, id primitive.ObjectID, input ClientInput) (*domain.Client, error)
	// DeleteClient removes the client with its assignments, completion
	// events, snapshots and goals. The linked identity is kept.
	DeleteClient(ctx context.Context, id primitive.ObjectID) error
	// EnsureIdentity provisions an identity for a client that has none and
	// forces the role of an already linked identity to client.
	EnsureIdentity(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	Credentials(ctx context.Context, id primitive.ObjectID) (*Credentials, error)
	AllCredentials(ctx context.Context) ([]Credentials, error)
	Statistics(ctx context.Context) (*ClientStatistics, error)
	UploadProfileImage(ctx context.Context, id primitive.ObjectID, file Upload) (*domain.Client, error)
}

type clientService struct {
	tx                  repository.Transactor
	clientRepo          repository.ClientRepository
	userRepo            repository.UserRepository
	clientRoutineRepo   repository.ClientRoutineRepository
	routineProgressRepo repository.RoutineProgressRepository
	progressRepo        repository.ProgressRepository
	goalRepo            repository.GoalRepository
	identities          IdentityProvisioner
	files               storage.FileStorage
	now                 func() time.Time
	log                 *zap.Logger
}

// ClientRepositories groups the stores the client service touches.
type ClientRepositories struct {
	Clients         repository.ClientRepository
	Users           repository.UserRepository
	ClientRoutines  repository.ClientRoutineRepository
	RoutineProgress repository.RoutineProgressRepository
	Progress        repository.ProgressRepository
	Goals           repository.GoalRepository
}

func NewClientService(tx repository.Transactor, repos ClientRepositories, identities IdentityProvisioner, files storage.FileStorage, log *zap.Logger) ClientService {
	return &clientService{
		tx:                  tx,
		clientRepo:          repos.Clients,
		userRepo:            repos.Users,
		clientRoutineRepo:   repos.ClientRoutines,
		routineProgressRepo: repos.RoutineProgress,
		progressRepo:        repos.Progress,
		goalRepo:            repos.Goals,
		identities:          identities,
		files:               files,
		now:                 time.Now,
		log:                 log,
	}
}

func (s *clientService) CreateClient(ctx context.Context, input ClientInput) (*domain.Client, *domain.User, error) {
	today := domain.TruncateDay(s.now())
	if err := validateClientInput(input, today); err != nil {
		return nil, nil, err
	}

	var (
		client *domain.Client
		user   *domain.User
	)
	for attempt := 1; ; attempt++ {
		client = newClient(input, today)
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.clientRepo.Create(ctx, client); err != nil {
				return clientWriteError(err)
			}
			u, err := s.identities.Provision(ctx, client)
			if err != nil {
				return err
			}
			user = u
			return nil
		})
		if errors.Is(err, errUsernameTaken) && attempt < maxProvisionAttempts {
			s.log.Debug("client_create_retry", zap.String("email", input.Email), zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, errUsernameTaken) {
			return nil, nil, ErrIdentityExists
		}
		if err != nil {
			return nil, nil, err
		}
		break
	}

	s.log.Info("client_created",
		zap.String("client_id", client.ID.Hex()),
		zap.String("user_id", user.ID.Hex()),
	)
	return client, user, nil
}

func newClient(in ClientInput, today time.Time) *domain.Client {
	join := today
	if in.JoinDate != nil {
		join = domain.TruncateDay(*in.JoinDate)
	}
	subType := in.SubscriptionType
	if subType == "" {
		subType = domain.SubscriptionNone
	}
	return &domain.Client{
		Name:              strings.TrimSpace(in.Name),
		Email:             strings.TrimSpace(in.Email),
		Phone:             strings.TrimSpace(in.Phone),
		BirthDate:         domain.TruncateDay(in.BirthDate),
		Weight:            in.Weight,
		Height:            in.Height,
		Goals:             in.Goals,
		JoinDate:          join,
		SubscriptionType:  subType,
		SubscriptionStart: truncatePtr(in.SubscriptionStart),
		SubscriptionEnd:   truncatePtr(in.SubscriptionEnd),
		Notes:             in.Notes,
		EmergencyContact:  in.EmergencyContact,
		MedicalConditions: in.MedicalConditions,
		UserID:            in.UserID,
	}
}

func truncatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.TruncateDay(*t)
	return &d
}

func validateClientInput(in ClientInput, today time.Time) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("name is required")
	}
	if _, err := domain.UsernameCandidate(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		return validationError("email %q is invalid", in.Email)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return validationError("phone is required")
	}
	if in.BirthDate.IsZero() || domain.TruncateDay(in.BirthDate).After(today) {
		return validationError("birthDate must be a past date")
	}
	if in.Weight <= 0 || in.Height <= 0 {
		return validationError("weight and height must be positive")
	}
	if in.SubscriptionType != "" && !in.SubscriptionType.Valid() {
		return validationError("unknown subscriptionType %q", in.SubscriptionType)
	}
	if in.SubscriptionStart != nil && in.SubscriptionEnd != nil && in.SubscriptionEnd.Before(*in.SubscriptionStart) {
		return validationError("subscriptionEnd is before subscriptionStart")
	}
	return nil
}

// clientWriteError maps unique index violations on clients to ErrClientExists.
func clientWriteError(err error) error {
	if !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	if field := repository.DuplicateField(err); field != "" {
		return fmt.Errorf("%w (%s)", ErrClientExists, field)
	}
	return ErrClientExists
}

func (s *clientService) GetClient(ctx context.Context, id primitive.ObjectID) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

func (s *clientService) GetClientByUser(ctx context.Context, userID primitive.ObjectID) (*domain.Client, error) {
	client, err := s.clientRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

func (s *clientService) ListClients(ctx context.Context, q ClientQuery) ([]domain.Client, error) {
	today := domain.TruncateDay(s.now())
	filter := repository.ClientFilter{
		Search:             strings.TrimSpace(q.Search),
		SubscriptionTypes:  q.SubscriptionTypes,
		SubscriptionStatus: q.SubscriptionStatus,
		HasIdentity:        q.HasIdentity,
		HasGoals:           q.HasGoals,
		HasRoutines:        q.HasRoutines,
		RoutineCount:       q.RoutineCount,
		Today:              today,
	}
	if q.RoutineCount != nil && *q.RoutineCount < 0 {
		return nil, validationError("routineCount cannot be negative")
	}
	for _, t := range q.SubscriptionTypes {
		if !t.Valid() {
			return nil, validationError("unknown subscriptionType %q", t)
		}
	}
	switch q.SubscriptionStatus {
	case "", domain.SubscriptionActive, domain.SubscriptionExpired, domain.SubscriptionAbsent:
	default:
		return nil, validationError("unknown subscriptionStatus %q", q.SubscriptionStatus)
	}
	if q.MinAge != nil && q.MaxAge != nil && *q.MinAge > *q.MaxAge {
		return nil, validationError("minAge is greater than maxAge")
	}
	// age >= n  <=>  born on or before today minus n years
	if q.MinAge != nil {
		t := today.AddDate(-*q.MinAge, 0, 0)
		filter.BornOnOrBefore = &t
	}
	// age <= n  <=>  born after today minus n+1 years
	if q.MaxAge != nil {
		t := today.AddDate(-(*q.MaxAge + 1), 0, 0)
		filter.BornAfter = &t
	}
	return s.clientRepo.List(ctx, filter)
}

func (s *clientService) UpdateClient(ctx context.Context, id primitive.ObjectID, input ClientInput) (*domain.Client, error) {
	today := domain.TruncateDay(s.now())
	if err := validateClientInput(input, today); err != nil {
		return nil, err
	}

	var updated *domain.Client
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.clientRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}

		next := newClient(input, today)
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		next.ProfileImage = existing.ProfileImage
		next.ProfileImageKey = existing.ProfileImageKey
		if input.JoinDate == nil {
			next.JoinDate = existing.JoinDate
		}
		next.UserID = existing.UserID

		if err := s.clientRepo.Update(ctx, next); err != nil {
			return clientWriteError(err)
		}
		// Linking is only possible while the client has no identity.
		if existing.UserID == nil && input.UserID != nil {
			next.UserID = input.UserID
			if _, err := s.identities.Provision(ctx, next); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *clientService) DeleteClient(ctx context.Context, id primitive.ObjectID) error {
	var imageKey string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := s.clientRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		imageKey = client.ProfileImageKey

		if err := s.routineProgressRepo.DeleteByClientID(ctx, id); err != nil {
			return err
		}
		if err := s.clientRoutineRepo.DeleteByClientID(ctx, id); err != nil {
			return err
		}
		if err := s.progressRepo.DeleteByClientID(ctx, id); err != nil {
			return err
		}
		if err := s.goalRepo.DeleteByClientID(ctx, id); err != nil {
			return err
		}
		return s.clientRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	discardObject(ctx, s.files, s.log, imageKey)
	s.log.Info("client_deleted", zap.String("client_id", id.Hex()))
	return nil
}

func (s *clientService) EnsureIdentity(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user *domain.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := s.clientRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		user, err = s.identities.Provision(ctx, client)
		return err
	})
	if errors.Is(err, errUsernameTaken) {
		return nil, ErrIdentityExists
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *clientService) Credentials(ctx context.Context, id primitive.ObjectID) (*Credentials, error) {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if client.UserID == nil {
		return nil, ErrNoLinkedIdentity
	}
	user, err := s.userRepo.GetByID(ctx, *client.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	creds := s.credentials(client, user)
	return &creds, nil
}

func (s *clientService) AllCredentials(ctx context.Context) ([]Credentials, error) {
	linked := true
	clients, err := s.clientRepo.List(ctx, repository.ClientFilter{HasIdentity: &linked, Today: s.now()})
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, *c.UserID)
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	result := make([]Credentials, 0, len(clients))
	for i := range clients {
		user, ok := byID[*clients[i].UserID]
		if !ok {
			s.log.Warn("client_identity_missing",
				zap.String("client_id", clients[i].ID.Hex()),
				zap.String("user_id", clients[i].UserID.Hex()),
			)
			continue
		}
		result = append(result, s.credentials(&clients[i], user))
	}
	return result, nil
}

func (s *clientService) credentials(client *domain.Client, user *domain.User) Credentials {
	creds := Credentials{
		ClientID:   client.ID,
		ClientName: client.Name,
		Username:   user.Username,
		Email:      user.Email,
		Age:        client.Age(s.now()),
		BirthDate:  client.BirthDate,
	}
	// The password was derived once, at provisioning time; it does not
	// follow later birthdays.
	if user.ProvisionedAge != nil {
		creds.DefaultPassword = domain.DefaultPassword(*user.ProvisionedAge)
	}
	return creds
}

func (s *clientService) Statistics(ctx context.Context) (*ClientStatistics, error) {
	now := s.now()
	clients, err := s.clientRepo.List(ctx, repository.ClientFilter{Today: now})
	if err != nil {
		return nil, err
	}

	stats := &ClientStatistics{
		Total:              len(clients),
		BySubscriptionType: map[domain.SubscriptionType]int{},
	}
	if len(clients) == 0 {
		return stats, nil
	}

	var ageSum, weightSum float64
	for i, c := range clients {
		switch c.SubscriptionStatusOn(now) {
		case domain.SubscriptionActive:
			stats.ActiveSubscriptions++
		case domain.SubscriptionExpired:
			stats.ExpiredSubscriptions++
		}
		stats.BySubscriptionType[c.SubscriptionType]++
		if c.UserID != nil {
			stats.WithIdentity++
		}

		age := c.Age(now)
		ageSum += float64(age)
		weightSum += c.Weight
		if i == 0 || age < stats.MinAge {
			stats.MinAge = age
		}
		if i == 0 || age > stats.MaxAge {
			stats.MaxAge = age
		}
		if i == 0 || c.Weight < stats.MinWeight {
			stats.MinWeight = c.Weight
		}
		if i == 0 || c.Weight > stats.MaxWeight {
			stats.MaxWeight = c.Weight
		}
	}
	stats.AverageAge = ageSum / float64(len(clients))
	stats.AverageWeight = weightSum / float64(len(clients))
	return stats, nil
}

// UploadProfileImage stores file and makes it the client's profile image.
// The previous image object is removed once the client points at the new one.
func (s *clientService) UploadProfileImage(ctx context.Context, id primitive.ObjectID, file Upload) (*domain.Client, error) {
	if err := validateUpload(file, "image", maxImageSize); err != nil {
		return nil, err
	}
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	key, url, err := storeUpload(ctx, s.files, profileImageFolder, file)
	if err != nil {
		return nil, fmt.Errorf("store profile image: %w", err)
	}

	oldKey := client.ProfileImageKey
	client.ProfileImage = url
	client.ProfileImageKey = key
	if err := s.clientRepo.Update(ctx, client); err != nil {
		discardObject(ctx, s.files, s.log, key)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	discardObject(ctx, s.files, s.log, oldKey)
	s.log.Info("profile_image_updated", zap.String("client_id", id.Hex()), zap.String("key", key))
	return client, nil
}
