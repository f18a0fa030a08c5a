package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// UserService defines the interface for account operations.
type UserService interface {
	// Register creates an account. Admin only.
	Register(ctx context.Context, raw map[string]any) (*models.User, error)
	// Login verifies credentials and issues a session token.
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// Logout revokes the token carried by the request context.
	Logout(ctx context.Context) error
	// Me returns the authenticated principal's account.
	Me(ctx context.Context) (*models.User, error)
	// Directory lists active users for assignment pickers.
	Directory(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[models.User], error)
	// Update applies a profile change. A "password" field is hashed before it is stored.
	Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.User], error)
	// Delete removes an account. Admin only; never removes the last admin.
	Delete(ctx context.Context, id int64) error
	// EnsureBootstrapAdmin creates the first admin when no users exist.
	// It returns nil, nil when nothing was created.
	EnsureBootstrapAdmin(ctx context.Context, username, email, password string) (*models.User, error)
}

// userService implements UserService.
type userService struct {
	*records[models.User]
	userRepo repositories.UserRepository
	tokens   auth.TokenService
}

// NewUserService creates a new user service with dependencies.
func NewUserService(
	userRepo repositories.UserRepository,
	tokens auth.TokenService,
	engine *policy.Engine,
	logger *zap.Logger,
) UserService {
	s := &userService{
		records:  newRecords[models.User](models.EntityUser, userRepo, engine, (*models.User).Ownership, logger.Named("users")),
		userRepo: userRepo,
		tokens:   tokens,
	}
	s.records.beforeWrite = hashPasswordField
	return s
}

// hashPasswordField swaps a plaintext password for its bcrypt hash.
func hashPasswordField(_ context.Context, writes policy.Proposal) error {
	password, ok := writes["password"].(string)
	if !ok {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	delete(writes, "password")
	writes["password_hash"] = hash
	return nil
}

func (s *userService) Register(ctx context.Context, raw map[string]any) (*models.User, error) {
	p, err := s.authorizeCreate(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.newUser(raw)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", user.Role),
		zap.Int64("registered_by", p.ID))
	return user, nil
}

// newUser builds an account from a raw registration body.
func (s *userService) newUser(raw map[string]any) (*models.User, error) {
	fields, err := normalizeProposal(models.EntityUser, raw)
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "username", "email", "password"); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(stringField(fields, "password"))
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     stringField(fields, "username"),
		Email:        stringField(fields, "email"),
		PasswordHash: hash,
		FullName:     stringField(fields, "full_name"),
		Role:         models.RoleProgrammer,
		IsActive:     true,
	}
	if role := stringField(fields, "role"); role != "" {
		user.Role = role
	}
	if active, ok := fields["is_active"].(bool); ok {
		user.IsActive = active
	}
	return user, nil
}

// Login verifies the password of an active account. Unknown users, inactive
// users and wrong passwords all fail with ErrInvalidCredentials.
func (s *userService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Info("Login failed: unknown user", zap.String("username", username))
			s.auditor.LogLoginFailure(ctx, 0, username, "unknown_user")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		s.logger.Info("Login failed: inactive user", zap.Int64("user_id", user.ID))
		s.auditor.LogLoginFailure(ctx, user.ID, username, "inactive_user")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		s.logger.Info("Login failed: bad password", zap.Int64("user_id", user.ID))
		s.auditor.LogLoginFailure(ctx, user.ID, username, "bad_password")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		// Not fatal; the login itself succeeded.
		s.logger.Warn("Failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		now := s.engine.Now()
		user.LastLoginAt = &now
	}

	token, claims, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	s.auditor.LogLoginSuccess(ctx, user.ID, user.Username)
	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

func (s *userService) Logout(ctx context.Context) error {
	claims, ok := auth.GetClaims(ctx)
	if !ok || claims == nil {
		return apperrors.ErrUnauthenticated
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.Int64("user_id", claims.UserID))
	return nil
}

func (s *userService) Me(ctx context.Context) (*models.User, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, p.ID)
}

func (s *userService) Directory(ctx context.Context) ([]*models.User, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	return s.userRepo.Directory(ctx)
}

// Delete is admin only, even for one's own account.
func (s *userService) Delete(ctx context.Context, id int64) error {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return err
	}
	if !p.IsAdmin() {
		err := &policy.ViolationError{Entity: models.EntityUser, RecordID: id, PrincipalID: p.ID, Reason: "delete"}
		s.auditor.LogPolicyViolation(ctx, "delete", err, nil)
		return err
	}
	return s.records.Delete(ctx, id)
}

func (s *userService) EnsureBootstrapAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	if password == "" {
		s.logger.Warn("No users exist and BOOTSTRAP_ADMIN_PASSWORD is not set; nobody can log in")
		return nil, nil
	}

	user, err := s.newUser(map[string]any{
		"username":  username,
		"email":     email,
		"password":  password,
		"full_name": "Administrator",
		"role":      models.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid bootstrap admin: %w", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Bootstrap admin created", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

var _ UserService = (*userService)(nil)
