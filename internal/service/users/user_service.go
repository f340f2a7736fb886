package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/Domenick1991/outdoorcamp/internal/auth"
	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/Domenick1991/outdoorcamp/internal/repository"
	"github.com/google/uuid"
)

type UserUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, actor domain.Principal) (*domain.User, error)
	List(ctx context.Context, actor domain.Principal) ([]domain.User, error)
	Get(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, actor domain.Principal, id uuid.UUID, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error
}

// Tokens issues bearer tokens for authenticated users.
type Tokens interface {
	Issue(p domain.Principal) (string, error)
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

type AuthResult struct {
	Token string
	User  *domain.User
}

type UserService struct {
	repo   repository.UserRepository
	tokens Tokens
}

func NewUserService(repo repository.UserRepository, tokens Tokens) *UserService {
	return &UserService{repo: repo, tokens: tokens}
}

// Register creates an account with role user and signs it in.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, domain.Invalid("name is required")
	}
	if input.Password == "" {
		return nil, domain.Invalid("password is required")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.signIn(user)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.signIn(user)
}

func (s *UserService) Me(ctx context.Context, actor domain.Principal) (*domain.User, error) {
	return s.repo.GetByID(ctx, actor.UserID)
}

func (s *UserService) List(ctx context.Context, actor domain.Principal) ([]domain.User, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, actor domain.Principal, id uuid.UUID) (*domain.User, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Update changes name, email or role. A new email must not belong to another
// account.
func (s *UserService) Update(ctx context.Context, actor domain.Principal, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, domain.Invalid("unknown role")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, domain.Invalid("name must not be empty")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		patch.Email = &email
		if email != existing.Email {
			other, err := s.repo.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != id:
				return nil, domain.ErrEmailTaken
			case err != nil && !errors.Is(err, domain.ErrNotFound):
				return nil, err
			}
		}
	}

	return s.repo.Update(ctx, id, patch)
}

func (s *UserService) Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if id == actor.UserID {
		return domain.ErrSelfDelete
	}
	return s.repo.Delete(ctx, id)
}

// EnsureAdmin creates the bootstrap admin account unless a user with that
// email already exists.
func (s *UserService) EnsureAdmin(ctx context.Context, email, name, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	_, err = s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil
		}
		return err
	}
	logger.Log.WithField("email", email).Info("default admin created")
	return nil
}

func (s *UserService) signIn(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.Principal())
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("invalid email")
	}
	return email, nil
}

var _ UserUseCase = (*UserService)(nil)
