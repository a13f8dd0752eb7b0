package identity

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeatLimiter enforces the subscription's agent seat limit and keeps
// the usage counters in sync. The billing quota service implements it.
type SeatLimiter interface {
	// CanAddUser returns a domain error when the tenant is at its seat limit
	CanAddUser(ctx context.Context, tenantID uuid.UUID) error

	// RecordUserAdded records a seat taken
	RecordUserAdded(ctx context.Context, tenantID, userID uuid.UUID) error

	// RecordUserRemoved records a seat freed
	RecordUserRemoved(ctx context.Context, tenantID, userID uuid.UUID) error
}

// UserService handles user management operations
type UserService struct {
	userRepo identity.UserRepository
	roleRepo identity.RoleRepository
	seats    SeatLimiter // optional
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	seats SeatLimiter,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		seats:    seats,
		logger:   logger,
	}
}

// CreateUserInput contains input for creating a user
type CreateUserInput struct {
	TenantID  uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Invited   bool // true sends an invitation; the user activates on first login
	RoleIDs   []uuid.UUID
}

// UpdateUserInput contains input for updating a user
type UpdateUserInput struct {
	ID        uuid.UUID
	FirstName *string
	LastName  *string
	Phone     *string
	AvatarURL *string
}

// UserDTO represents user data transfer object
type UserDTO struct {
	ID            uuid.UUID   `json:"id"`
	TenantID      uuid.UUID   `json:"tenant_id"`
	Email         string      `json:"email"`
	FirstName     string      `json:"first_name,omitempty"`
	LastName      string      `json:"last_name,omitempty"`
	FullName      string      `json:"full_name"`
	Phone         string      `json:"phone,omitempty"`
	AvatarURL     string      `json:"avatar_url,omitempty"`
	Status        string      `json:"status"`
	IsTenantAdmin bool        `json:"is_tenant_admin"`
	RoleIDs       []uuid.UUID `json:"role_ids"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// UserListResult represents paginated user list result
type UserListResult struct {
	Users      []UserDTO `json:"users"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// Create creates a new user within the tenant, enforcing the seat limit
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	s.logger.Info("Creating new user",
		zap.String("email", input.Email),
		zap.String("tenant_id", input.TenantID.String()))

	// Enforce the subscription's agent seat limit
	if s.seats != nil {
		if err := s.seats.CanAddUser(ctx, input.TenantID); err != nil {
			return nil, err
		}
	}

	// Check if email already exists within the tenant
	exists, err := s.userRepo.ExistsByEmail(ctx, input.TenantID, input.Email)
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "Email already exists")
	}

	// Validate that all role IDs exist
	if len(input.RoleIDs) > 0 {
		for _, roleID := range input.RoleIDs {
			exists, err := s.roleRepo.ExistsByID(ctx, roleID)
			if err != nil {
				s.logger.Error("Failed to check role existence", zap.Error(err))
				return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to validate roles")
			}
			if !exists {
				return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found: "+roleID.String())
			}
		}
	}

	// Create user
	var user *identity.User
	if input.Invited {
		user, err = identity.NewUser(input.TenantID, input.Email, input.Password)
	} else {
		user, err = identity.NewActiveUser(input.TenantID, input.Email, input.Password)
	}
	if err != nil {
		return nil, err
	}

	// Set optional fields
	if input.FirstName != "" || input.LastName != "" {
		if err := user.SetName(input.FirstName, input.LastName); err != nil {
			return nil, err
		}
	}
	if input.Phone != "" {
		if err := user.SetPhone(input.Phone); err != nil {
			return nil, err
		}
	}

	// Assign roles
	for _, roleID := range input.RoleIDs {
		if err := user.AssignRole(roleID); err != nil {
			// Skip duplicate errors silently
			if domainErr, ok := err.(*shared.DomainError); ok && domainErr.Code == "ROLE_ALREADY_ASSIGNED" {
				continue
			}
			return nil, err
		}
	}

	// Save user
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create user")
	}

	// Save user roles
	if len(user.RoleIDs) > 0 {
		if err := s.userRepo.SaveUserRoles(ctx, user); err != nil {
			s.logger.Error("Failed to save user roles", zap.Error(err))
			// Delete the user if role assignment failed
			_ = s.userRepo.Delete(ctx, user.ID)
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to assign roles to user")
		}
	}

	// Record the seat in the usage counters
	if s.seats != nil {
		if err := s.seats.RecordUserAdded(ctx, input.TenantID, user.ID); err != nil {
			s.logger.Warn("Failed to record seat usage", zap.Error(err))
		}
	}

	s.logger.Info("User created successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return toUserDTO(user), nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	// Load roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
	}

	return toUserDTO(user), nil
}

// List retrieves a paginated list of users for a tenant
func (s *UserService) List(ctx context.Context, tenantID uuid.UUID, filter identity.UserFilter) (*UserListResult, error) {
	users, total, err := s.userRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list users")
	}

	// Load roles for each user
	for _, user := range users {
		if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
			s.logger.Error("Failed to load user roles",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
		}
	}

	// Calculate total pages
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	userDTOs := make([]UserDTO, len(users))
	for i, user := range users {
		userDTOs[i] = *toUserDTO(user)
	}

	return &UserListResult{
		Users:      userDTOs,
		Total:      total,
		Page:       filter.Page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Update updates a user's information
func (s *UserService) Update(ctx context.Context, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, input.ID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	// Update fields
	if input.FirstName != nil || input.LastName != nil {
		firstName := user.FirstName
		lastName := user.LastName
		if input.FirstName != nil {
			firstName = *input.FirstName
		}
		if input.LastName != nil {
			lastName = *input.LastName
		}
		if err := user.SetName(firstName, lastName); err != nil {
			return nil, err
		}
	}

	if input.Phone != nil {
		if err := user.SetPhone(*input.Phone); err != nil {
			return nil, err
		}
	}

	if input.AvatarURL != nil {
		if err := user.SetAvatarURL(*input.AvatarURL); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	// Load roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
	}

	s.logger.Info("User updated", zap.String("user_id", input.ID.String()))

	return toUserDTO(user), nil
}

// Delete deletes a user and frees the seat
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	// The tenant admin account cannot be removed
	if user.IsTenantAdmin {
		return shared.NewDomainError("CANNOT_DELETE_ADMIN", "The tenant admin account cannot be deleted")
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		s.logger.Error("Failed to delete user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete user")
	}

	if s.seats != nil {
		if err := s.seats.RecordUserRemoved(ctx, user.TenantID, user.ID); err != nil {
			s.logger.Warn("Failed to record freed seat", zap.Error(err))
		}
	}

	s.logger.Info("User deleted", zap.String("user_id", id.String()))

	return nil
}

// Activate activates a user
func (s *UserService) Activate(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	if err := user.Activate(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to activate user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to activate user")
	}

	// Load roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
	}

	s.logger.Info("User activated", zap.String("user_id", id.String()))

	return toUserDTO(user), nil
}

// Block blocks a user account
func (s *UserService) Block(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	if err := user.Block(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to block user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to block user")
	}

	// Load roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
	}

	s.logger.Info("User blocked", zap.String("user_id", id.String()))

	return toUserDTO(user), nil
}

// Lock locks a user account
func (s *UserService) Lock(ctx context.Context, id uuid.UUID, duration time.Duration) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	if err := user.Lock(duration); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to lock user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to lock user")
	}

	// Load roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
	}

	s.logger.Info("User locked", zap.String("user_id", id.String()))

	return toUserDTO(user), nil
}

// Unlock unlocks a user account
func (s *UserService) Unlock(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	if err := user.Unlock(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to unlock user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to unlock user")
	}

	// Load roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
	}

	s.logger.Info("User unlocked", zap.String("user_id", id.String()))

	return toUserDTO(user), nil
}

// ResetPassword resets a user's password (admin action)
func (s *UserService) ResetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == shared.ErrNotFound {
			return shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	if err := user.SetPassword(newPassword); err != nil {
		return err
	}

	// Force password change on next login
	user.ForcePasswordChange()

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to reset password", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to reset password")
	}

	s.logger.Info("User password reset", zap.String("user_id", userID.String()))

	return nil
}

// AssignRoles assigns roles to a user (replaces existing roles)
func (s *UserService) AssignRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}

	// Validate that all role IDs exist
	for _, roleID := range roleIDs {
		exists, err := s.roleRepo.ExistsByID(ctx, roleID)
		if err != nil {
			s.logger.Error("Failed to check role existence", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to validate roles")
		}
		if !exists {
			return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found: "+roleID.String())
		}
	}

	// Set new roles
	if err := user.SetRoles(roleIDs); err != nil {
		return nil, err
	}

	// Save user roles
	if err := s.userRepo.SaveUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to save user roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to assign roles")
	}

	// Update user version
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	s.logger.Info("User roles assigned",
		zap.String("user_id", userID.String()),
		zap.Int("role_count", len(roleIDs)))

	return toUserDTO(user), nil
}

// Count returns the number of users in a tenant
func (s *UserService) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return s.userRepo.CountByTenant(ctx, tenantID)
}

// toUserDTO converts domain User to UserDTO
func toUserDTO(user *identity.User) *UserDTO {
	return &UserDTO{
		ID:            user.ID,
		TenantID:      user.TenantID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		FullName:      user.FullName(),
		Phone:         user.Phone,
		AvatarURL:     user.AvatarURL,
		Status:        string(user.Status),
		IsTenantAdmin: user.IsTenantAdmin,
		RoleIDs:       user.RoleIDs,
		LastLoginAt:   user.LastLoginAt,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}
