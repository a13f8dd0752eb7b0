package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates user with valid email and password", func(t *testing.T) {
		user, err := NewUser(tenantID, "agent@acme.ge", "Password123")

		require.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, tenantID, user.TenantID)
		assert.Equal(t, "agent@acme.ge", user.Email)
		assert.NotEmpty(t, user.PasswordHash)
		assert.Equal(t, UserStatusInvited, user.Status)
		assert.Empty(t, user.RoleIDs)
		assert.NotNil(t, user.PasswordChangedAt)

		events := user.GetDomainEvents()
		assert.Len(t, events, 1)
		_, ok := events[0].(*UserCreatedEvent)
		assert.True(t, ok)
	})

	t.Run("normalizes email to lowercase", func(t *testing.T) {
		user, err := NewUser(tenantID, "Agent@Acme.GE", "Password123")

		require.NoError(t, err)
		assert.Equal(t, "agent@acme.ge", user.Email)
	})

	t.Run("fails with empty email", func(t *testing.T) {
		_, err := NewUser(tenantID, "", "Password123")
		assert.Error(t, err)
	})

	t.Run("fails with invalid email", func(t *testing.T) {
		_, err := NewUser(tenantID, "not-an-email", "Password123")
		assert.Error(t, err)
	})

	t.Run("fails with short password", func(t *testing.T) {
		_, err := NewUser(tenantID, "agent@acme.ge", "Pw1")
		assert.Error(t, err)
	})

	t.Run("fails with password missing a number", func(t *testing.T) {
		_, err := NewUser(tenantID, "agent@acme.ge", "Passwords")
		assert.Error(t, err)
	})

	t.Run("active user is created active", func(t *testing.T) {
		user, err := NewActiveUser(tenantID, "agent@acme.ge", "Password123")

		require.NoError(t, err)
		assert.Equal(t, UserStatusActive, user.Status)
	})

	t.Run("tenant admin flag set", func(t *testing.T) {
		user, err := NewTenantAdmin(tenantID, "admin@acme.ge", "Password123")

		require.NoError(t, err)
		assert.True(t, user.IsTenantAdmin)
		assert.Equal(t, UserStatusActive, user.Status)
	})
}

func TestUserPassword(t *testing.T) {
	tenantID := uuid.New()

	t.Run("verify password round trip", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")

		assert.True(t, user.VerifyPassword("Password123"))
		assert.False(t, user.VerifyPassword("WrongPass1"))
	})

	t.Run("change password requires correct old password", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")

		err := user.ChangePassword("WrongPass1", "NewPassword1")
		assert.Error(t, err)

		err = user.ChangePassword("Password123", "NewPassword1")
		require.NoError(t, err)
		assert.True(t, user.VerifyPassword("NewPassword1"))
	})

	t.Run("admin reset clears must-change flag", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		user.ForcePasswordChange()
		require.True(t, user.MustChangePassword)

		err := user.SetPassword("NewPassword1")
		require.NoError(t, err)
		assert.False(t, user.MustChangePassword)
	})
}

func TestUserRoles(t *testing.T) {
	tenantID := uuid.New()

	t.Run("assign and remove role", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		roleID := uuid.New()

		require.NoError(t, user.AssignRole(roleID))
		assert.True(t, user.HasRole(roleID))

		err := user.AssignRole(roleID)
		assert.Error(t, err)

		require.NoError(t, user.RemoveRole(roleID))
		assert.False(t, user.HasRole(roleID))
	})

	t.Run("remove unassigned role fails", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		err := user.RemoveRole(uuid.New())
		assert.Error(t, err)
	})

	t.Run("set roles deduplicates", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		roleID := uuid.New()

		require.NoError(t, user.SetRoles([]uuid.UUID{roleID, roleID, uuid.New()}))
		assert.Len(t, user.RoleIDs, 2)
	})
}

func TestUserLockout(t *testing.T) {
	tenantID := uuid.New()

	t.Run("locks after max failed attempts", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")

		locked := user.RecordLoginFailure(3, time.Hour)
		assert.False(t, locked)
		locked = user.RecordLoginFailure(3, time.Hour)
		assert.False(t, locked)
		locked = user.RecordLoginFailure(3, time.Hour)
		assert.True(t, locked)

		assert.True(t, user.IsLocked())
		assert.False(t, user.CanLogin())
	})

	t.Run("lock expires", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		require.NoError(t, user.Lock(time.Hour))

		past := time.Now().Add(-time.Minute)
		user.LockedUntil = &past

		assert.False(t, user.IsLocked())
		assert.True(t, user.CanLogin())
	})

	t.Run("unlock resets attempts", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		user.RecordLoginFailure(1, time.Hour)
		require.True(t, user.IsLocked())

		require.NoError(t, user.Unlock())
		assert.Equal(t, UserStatusActive, user.Status)
		assert.Zero(t, user.FailedAttempts)
	})

	t.Run("login success activates invited user", func(t *testing.T) {
		user, _ := NewUser(tenantID, "agent@acme.ge", "Password123")
		require.Equal(t, UserStatusInvited, user.Status)

		user.RecordLoginSuccess("10.0.0.1")

		assert.Equal(t, UserStatusActive, user.Status)
		assert.NotNil(t, user.LastLoginAt)
		assert.Equal(t, "10.0.0.1", user.LastLoginIP)
	})
}

func TestUserBlock(t *testing.T) {
	tenantID := uuid.New()

	t.Run("blocked user cannot login", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")

		require.NoError(t, user.Block())
		assert.True(t, user.IsBlocked())
		assert.False(t, user.CanLogin())
	})

	t.Run("cannot block twice", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		require.NoError(t, user.Block())
		assert.Error(t, user.Block())
	})

	t.Run("cannot lock blocked user", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		require.NoError(t, user.Block())
		assert.Error(t, user.Lock(time.Hour))
	})

	t.Run("activate unblocks", func(t *testing.T) {
		user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")
		require.NoError(t, user.Block())

		require.NoError(t, user.Activate())
		assert.True(t, user.CanLogin())
	})
}

func TestUserFullName(t *testing.T) {
	tenantID := uuid.New()
	user, _ := NewActiveUser(tenantID, "agent@acme.ge", "Password123")

	assert.Equal(t, "agent@acme.ge", user.FullName())

	require.NoError(t, user.SetName("Nino", "Beridze"))
	assert.Equal(t, "Nino Beridze", user.FullName())
}
