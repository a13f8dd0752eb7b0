package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusInvited UserStatus = "invited" // Invitation sent, awaiting first login
	UserStatusActive  UserStatus = "active"  // Normal active status
	UserStatusLocked  UserStatus = "locked"  // Locked due to failed attempts/security
	UserStatusBlocked UserStatus = "blocked" // Manually blocked by an admin
)

// Password cost for bcrypt
const bcryptCost = 12

// User represents an agent or admin within a tenant workspace.
// Users log in with their email address.
type User struct {
	shared.TenantAggregateRoot
	Email              string
	FirstName          string
	LastName           string
	Phone              string
	PasswordHash       string
	AvatarURL          string
	Status             UserStatus
	IsTenantAdmin      bool
	RoleIDs            []uuid.UUID // Stored in separate table, loaded by repository
	LastLoginAt        *time.Time
	LastLoginIP        string
	FailedAttempts     int
	LockedUntil        *time.Time
	PasswordChangedAt  *time.Time
	MustChangePassword bool
}

// UserRole represents the many-to-many relationship between users and roles
type UserRole struct {
	UserID    uuid.UUID
	RoleID    uuid.UUID
	TenantID  uuid.UUID
	CreatedAt time.Time
}

// NewUser creates a new invited user with required fields
func NewUser(tenantID uuid.UUID, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	now := time.Now()
	user := &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Email:               email,
		PasswordHash:        passwordHash,
		Status:              UserStatusInvited,
		RoleIDs:             make([]uuid.UUID, 0),
		PasswordChangedAt:   &now,
	}

	user.AddDomainEvent(NewUserCreatedEvent(user))

	return user, nil
}

// NewActiveUser creates a new user that is immediately active
func NewActiveUser(tenantID uuid.UUID, email, password string) (*User, error) {
	user, err := NewUser(tenantID, email, password)
	if err != nil {
		return nil, err
	}

	user.Status = UserStatusActive
	return user, nil
}

// NewTenantAdmin creates the initial admin user for a freshly provisioned tenant
func NewTenantAdmin(tenantID uuid.UUID, email, password string) (*User, error) {
	user, err := NewActiveUser(tenantID, email, password)
	if err != nil {
		return nil, err
	}

	user.IsTenantAdmin = true
	return user, nil
}

// NewTenantAdminFromHash creates the initial admin from an already-hashed
// password. Signup hashes the password before payment; provisioning after
// the payment webhook never sees the plaintext.
func NewTenantAdminFromHash(tenantID uuid.UUID, email, passwordHash string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password hash is required")
	}

	now := time.Now()
	user := &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Email:               email,
		PasswordHash:        passwordHash,
		Status:              UserStatusActive,
		IsTenantAdmin:       true,
		RoleIDs:             make([]uuid.UUID, 0),
		PasswordChangedAt:   &now,
	}

	user.AddDomainEvent(NewUserCreatedEvent(user))

	return user, nil
}

// SetName sets the user's first and last name
func (u *User) SetName(firstName, lastName string) error {
	if len(firstName) > 100 || len(lastName) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 100 characters")
	}

	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.touch()

	return nil
}

// SetPhone sets the user's phone number
func (u *User) SetPhone(phone string) error {
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}

	u.Phone = strings.TrimSpace(phone)
	u.touch()

	return nil
}

// SetAvatarURL sets the user's avatar URL
func (u *User) SetAvatarURL(avatar string) error {
	if avatar != "" && len(avatar) > 500 {
		return shared.NewDomainError("INVALID_AVATAR", "Avatar URL cannot exceed 500 characters")
	}

	u.AvatarURL = avatar
	u.touch()

	return nil
}

// ChangePassword changes the user's password after verifying the old one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}

	return u.SetPassword(newPassword)
}

// SetPassword sets a new password (admin reset, no old password check)
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	u.PasswordHash = passwordHash
	now := time.Now()
	u.PasswordChangedAt = &now
	u.MustChangePassword = false
	u.touch()

	u.AddDomainEvent(NewUserPasswordChangedEvent(u))

	return nil
}

// ForcePasswordChange marks that user must change password on next login
func (u *User) ForcePasswordChange() {
	u.MustChangePassword = true
	u.touch()
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// AssignRole assigns a role to the user
func (u *User) AssignRole(roleID uuid.UUID) error {
	if roleID == uuid.Nil {
		return shared.NewDomainError("INVALID_ROLE_ID", "Role ID cannot be empty")
	}

	for _, rid := range u.RoleIDs {
		if rid == roleID {
			return shared.NewDomainError("ROLE_ALREADY_ASSIGNED", "User already has this role")
		}
	}

	u.RoleIDs = append(u.RoleIDs, roleID)
	u.touch()

	u.AddDomainEvent(NewUserRoleAssignedEvent(u, roleID))

	return nil
}

// RemoveRole removes a role from the user
func (u *User) RemoveRole(roleID uuid.UUID) error {
	if roleID == uuid.Nil {
		return shared.NewDomainError("INVALID_ROLE_ID", "Role ID cannot be empty")
	}

	found := false
	newRoleIDs := make([]uuid.UUID, 0, len(u.RoleIDs))
	for _, rid := range u.RoleIDs {
		if rid != roleID {
			newRoleIDs = append(newRoleIDs, rid)
		} else {
			found = true
		}
	}

	if !found {
		return shared.NewDomainError("ROLE_NOT_ASSIGNED", "User does not have this role")
	}

	u.RoleIDs = newRoleIDs
	u.touch()

	u.AddDomainEvent(NewUserRoleRemovedEvent(u, roleID))

	return nil
}

// SetRoles sets all roles for the user (replaces existing roles)
func (u *User) SetRoles(roleIDs []uuid.UUID) error {
	for _, rid := range roleIDs {
		if rid == uuid.Nil {
			return shared.NewDomainError("INVALID_ROLE_ID", "Role ID cannot be empty")
		}
	}

	// Deduplicate
	seen := make(map[uuid.UUID]bool)
	uniqueRoles := make([]uuid.UUID, 0, len(roleIDs))
	for _, rid := range roleIDs {
		if !seen[rid] {
			seen[rid] = true
			uniqueRoles = append(uniqueRoles, rid)
		}
	}

	u.RoleIDs = uniqueRoles
	u.touch()

	return nil
}

// HasRole checks if user has a specific role
func (u *User) HasRole(roleID uuid.UUID) bool {
	for _, rid := range u.RoleIDs {
		if rid == roleID {
			return true
		}
	}
	return false
}

// Activate activates the user
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	}

	oldStatus := u.Status
	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.touch()

	u.AddDomainEvent(NewUserStatusChangedEvent(u, oldStatus, UserStatusActive))

	return nil
}

// Block blocks the user from logging in
func (u *User) Block() error {
	if u.Status == UserStatusBlocked {
		return shared.NewDomainError("ALREADY_BLOCKED", "User is already blocked")
	}

	oldStatus := u.Status
	u.Status = UserStatusBlocked
	u.touch()

	u.AddDomainEvent(NewUserBlockedEvent(u))
	u.AddDomainEvent(NewUserStatusChangedEvent(u, oldStatus, UserStatusBlocked))

	return nil
}

// Lock locks the user account for the given duration
func (u *User) Lock(duration time.Duration) error {
	if u.Status == UserStatusBlocked {
		return shared.NewDomainError("USER_BLOCKED", "Cannot lock a blocked user")
	}

	oldStatus := u.Status
	u.Status = UserStatusLocked
	if duration > 0 {
		lockedUntil := time.Now().Add(duration)
		u.LockedUntil = &lockedUntil
	}
	u.touch()

	u.AddDomainEvent(NewUserStatusChangedEvent(u, oldStatus, UserStatusLocked))

	return nil
}

// Unlock unlocks the user account
func (u *User) Unlock() error {
	if u.Status != UserStatusLocked {
		return shared.NewDomainError("NOT_LOCKED", "User is not locked")
	}

	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.touch()

	u.AddDomainEvent(NewUserStatusChangedEvent(u, UserStatusLocked, UserStatusActive))

	return nil
}

// RecordLoginSuccess records a successful login
func (u *User) RecordLoginSuccess(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.FailedAttempts = 0
	if u.Status == UserStatusInvited {
		u.Status = UserStatusActive
	}
	u.touch()
}

// RecordLoginFailure records a failed login attempt.
// Returns true if the account was locked as a result.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	u.touch()

	if u.FailedAttempts >= maxAttempts {
		_ = u.Lock(lockDuration)
		return true
	}

	return false
}

// IsActive returns true if user is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsLocked returns true if user is locked and the lock has not expired
func (u *User) IsLocked() bool {
	if u.Status != UserStatusLocked {
		return false
	}

	if u.LockedUntil != nil && time.Now().After(*u.LockedUntil) {
		return false
	}

	return true
}

// IsBlocked returns true if user is blocked
func (u *User) IsBlocked() bool {
	return u.Status == UserStatusBlocked
}

// CanLogin returns true if user can login
func (u *User) CanLogin() bool {
	if u.Status == UserStatusBlocked {
		return false
	}
	if u.IsLocked() {
		return false
	}
	return true
}

// FullName returns "First Last", falling back to the email
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Email
}

func (u *User) touch() {
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

// Validation functions

func validatePassword(password string) error {
	if password == "" {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot be empty")
	}
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 128 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 128 characters")
	}

	// Require at least one letter and one number
	hasLetter := regexp.MustCompile(`[a-zA-Z]`).MatchString(password)
	hasNumber := regexp.MustCompile(`[0-9]`).MatchString(password)
	if !hasLetter || !hasNumber {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}

	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}

	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}

	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
