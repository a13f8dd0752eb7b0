package social

import (
	"context"
	"testing"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/social"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newConnectionService() (*ConnectionService, *MockConnectionRepository) {
	repo := new(MockConnectionRepository)
	return NewConnectionService(repo, zap.NewNop()), repo
}

func TestConnectionService_Connect_NewAccount(t *testing.T) {
	service, repo := newConnectionService()
	tenantID := uuid.New()

	repo.On("FindByAccount", mock.Anything, social.PlatformFacebook, "page-100").
		Return(nil, shared.ErrNotFound)
	var saved *social.Connection
	repo.On("Save", mock.Anything, mock.AnythingOfType("*social.Connection")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*social.Connection) }).
		Return(nil)

	dto, err := service.Connect(context.Background(), tenantID, ConnectInput{
		Platform:    "facebook",
		AccountID:   "page-100",
		AccountName: "EchoDesk Page",
		AccessToken: "page-token",
	})

	require.NoError(t, err)
	assert.True(t, dto.IsActive)
	require.NotNil(t, saved)
	assert.Equal(t, tenantID, saved.TenantID)
	assert.Equal(t, "page-token", saved.AccessToken)
}

func TestConnectionService_Connect_ReconnectRotatesToken(t *testing.T) {
	service, repo := newConnectionService()
	tenantID := uuid.New()

	conn := newTestConnection(t, tenantID, social.PlatformWhatsApp, "phone-300")
	conn.Disconnect()
	repo.On("FindByAccount", mock.Anything, social.PlatformWhatsApp, "phone-300").Return(conn, nil)
	repo.On("Save", mock.Anything, conn).Return(nil)

	dto, err := service.Connect(context.Background(), tenantID, ConnectInput{
		Platform:    "whatsapp",
		AccountID:   "phone-300",
		AccessToken: "fresh-token",
	})

	require.NoError(t, err)
	assert.True(t, dto.IsActive)
	assert.Equal(t, "fresh-token", conn.AccessToken)
}

func TestConnectionService_Connect_AccountOwnedByOtherTenant(t *testing.T) {
	service, repo := newConnectionService()

	other := newTestConnection(t, uuid.New(), social.PlatformFacebook, "page-100")
	repo.On("FindByAccount", mock.Anything, social.PlatformFacebook, "page-100").Return(other, nil)

	_, err := service.Connect(context.Background(), uuid.New(), ConnectInput{
		Platform:    "facebook",
		AccountID:   "page-100",
		AccessToken: "token",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_IN_USE", domainErr.Code)
}

func TestConnectionService_Disconnect(t *testing.T) {
	service, repo := newConnectionService()
	tenantID := uuid.New()
	conn := newTestConnection(t, tenantID, social.PlatformInstagram, "ig-200")

	repo.On("FindByID", mock.Anything, tenantID, conn.ID).Return(conn, nil)
	repo.On("Save", mock.Anything, conn).Return(nil)

	require.NoError(t, service.Disconnect(context.Background(), tenantID, conn.ID))
	assert.False(t, conn.IsActive)
}
