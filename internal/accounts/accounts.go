// Package accounts manages library users: self registration, sign in,
// admin-created accounts and password resets.
package accounts

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"libraryCirculation/internal/auth"
	"libraryCirculation/internal/liberr"
	"libraryCirculation/internal/policy"
	"libraryCirculation/models"
	"libraryCirculation/repository"
)

type Service struct {
	users     *repository.UserRepository
	adminCode string
	logger    *slog.Logger
}

func NewService(store *repository.Store, adminCode string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: store.Users, adminCode: adminCode, logger: logger}
}

// NewUser holds the fields of an account to create.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Campus   string `json:"campus"`
	Grade    string `json:"grade"`
}

func (n NewUser) validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return liberr.InvalidInput("name is required")
	}
	if _, err := mail.ParseAddress(n.Email); err != nil {
		return liberr.InvalidInput("invalid email")
	}
	if n.Password == "" {
		return liberr.InvalidInput("password is required")
	}
	if !models.Role(n.Role).Valid() {
		return liberr.InvalidInput("role must be admin or staff")
	}
	if !models.ValidCampus(n.Campus) {
		return liberr.InvalidInput("unknown campus")
	}
	return nil
}

func (s *Service) create(ctx context.Context, n NewUser) (*models.User, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(n.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:         strings.TrimSpace(n.Name),
		Email:        strings.TrimSpace(n.Email),
		PasswordHash: hash,
		Role:         models.Role(n.Role),
		Campus:       n.Campus,
	}
	if g := strings.TrimSpace(n.Grade); g != "" {
		u.Grade = &g
	}
	created, err := s.users.Create(ctx, u)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, liberr.Conflict("email already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", created.ID, "role", created.Role)
	return created, nil
}

// Register creates an account for a new user. Registering as admin requires
// the admin registration code.
func (s *Service) Register(ctx context.Context, n NewUser, adminCode string) (*models.User, error) {
	if models.Role(n.Role) == models.RoleAdmin &&
		subtle.ConstantTimeCompare([]byte(adminCode), []byte(s.adminCode)) != 1 {
		return nil, liberr.Forbidden("invalid admin registration code")
	}
	return s.create(ctx, n)
}

// CreateUser creates an account on behalf of an admin.
func (s *Service) CreateUser(ctx context.Context, caller policy.Caller, n NewUser) (*models.User, error) {
	if err := policy.AuthorizeAdminOnly(caller); err != nil {
		return nil, err
	}
	return s.create(ctx, n)
}

// Bootstrap creates an account without any caller, for the admin CLI.
func (s *Service) Bootstrap(ctx context.Context, n NewUser) (*models.User, error) {
	return s.create(ctx, n)
}

// Login checks the credentials of a user signing in at campus.
func (s *Service) Login(ctx context.Context, email, password, campus string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, liberr.NotFound("user not found")
	}
	if u.Campus != campus {
		return nil, liberr.Forbidden(fmt.Sprintf("this account belongs to %s campus, not %s", u.Campus, campus))
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, liberr.Unauthenticated("invalid password")
	}
	return u, nil
}

// Me returns the stored account of the caller.
func (s *Service) Me(ctx context.Context, caller policy.Caller) (*models.User, error) {
	u, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, liberr.NotFound("user not found")
	}
	return u, nil
}

// listPageSize is the keyset page size ListUsers reads with.
const listPageSize = 500

// ListUsers returns every account matching search by name or email, ordered
// by id. Admin only.
func (s *Service) ListUsers(ctx context.Context, caller policy.Caller, search string) ([]models.User, error) {
	if err := policy.AuthorizeAdminOnly(caller); err != nil {
		return nil, err
	}
	users := []models.User{}
	var after int64
	for {
		page, err := s.users.List(ctx, repository.ListUsersParams{Search: search, PageSize: listPageSize, AfterID: after})
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, page...)
		if len(page) < listPageSize {
			return users, nil
		}
		after = page[len(page)-1].ID
	}
}

// ResetPassword replaces the password of the account with email.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	if newPassword == "" {
		return liberr.InvalidInput("new password is required")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.users.UpdatePasswordByEmail(ctx, strings.TrimSpace(email), hash)
	if errors.Is(err, sql.ErrNoRows) {
		return liberr.NotFound("user not found")
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset")
	return nil
}
