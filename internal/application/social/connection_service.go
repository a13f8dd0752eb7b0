package social

import (
	"context"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/social"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectInput links a platform account to the tenant. The access token
// comes from the tenant's own Meta app setup.
type ConnectInput struct {
	Platform    string `json:"platform" binding:"required,oneof=facebook instagram whatsapp"`
	AccountID   string `json:"account_id" binding:"required"`
	AccountName string `json:"account_name"`
	AccessToken string `json:"access_token" binding:"required"`
}

// ConnectionDTO is the read model for a platform link. The access token
// never leaves the service.
type ConnectionDTO struct {
	ID          uuid.UUID `json:"id"`
	Platform    string    `json:"platform"`
	AccountID   string    `json:"account_id"`
	AccountName string    `json:"account_name,omitempty"`
	IsActive    bool      `json:"is_active"`
}

// ConnectionService manages the tenant's platform account links.
type ConnectionService struct {
	connRepo social.ConnectionRepository
	logger   *zap.Logger
}

// NewConnectionService creates a new ConnectionService
func NewConnectionService(connRepo social.ConnectionRepository, logger *zap.Logger) *ConnectionService {
	return &ConnectionService{connRepo: connRepo, logger: logger}
}

// Connect links a platform account. Reconnecting the tenant's own
// account rotates the token; an account owned by another tenant is
// rejected because webhook routing is keyed on (platform, account).
func (s *ConnectionService) Connect(ctx context.Context, tenantID uuid.UUID, input ConnectInput) (*ConnectionDTO, error) {
	platform := social.Platform(input.Platform)

	existing, err := s.connRepo.FindByAccount(ctx, platform, input.AccountID)
	if err == nil {
		if existing.TenantID != tenantID {
			return nil, shared.NewDomainError("ACCOUNT_IN_USE", "This account is connected to another workspace")
		}
		if err := existing.Reconnect(input.AccessToken); err != nil {
			return nil, err
		}
		if input.AccountName != "" {
			existing.AccountName = input.AccountName
		}
		if err := s.connRepo.Save(ctx, existing); err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save connection")
		}
		return toConnectionDTO(existing), nil
	}
	if err != shared.ErrNotFound {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check account")
	}

	conn, err := social.NewConnection(tenantID, platform, input.AccountID, input.AccountName, input.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := s.connRepo.Save(ctx, conn); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save connection")
	}

	s.logger.Info("Platform account connected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("platform", input.Platform),
		zap.String("account_id", input.AccountID))
	return toConnectionDTO(conn), nil
}

// Disconnect deactivates the link without deleting message history.
func (s *ConnectionService) Disconnect(ctx context.Context, tenantID, connectionID uuid.UUID) error {
	conn, err := s.load(ctx, tenantID, connectionID)
	if err != nil {
		return err
	}
	conn.Disconnect()
	if err := s.connRepo.Save(ctx, conn); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save connection")
	}
	return nil
}

// RotateToken replaces the stored access token after a refresh.
func (s *ConnectionService) RotateToken(ctx context.Context, tenantID, connectionID uuid.UUID, accessToken string) error {
	conn, err := s.load(ctx, tenantID, connectionID)
	if err != nil {
		return err
	}
	if err := conn.RotateToken(accessToken); err != nil {
		return err
	}
	if err := s.connRepo.Save(ctx, conn); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save connection")
	}
	return nil
}

// List returns the tenant's platform links.
func (s *ConnectionService) List(ctx context.Context, tenantID uuid.UUID) ([]*ConnectionDTO, error) {
	conns, err := s.connRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list connections")
	}
	dtos := make([]*ConnectionDTO, 0, len(conns))
	for _, conn := range conns {
		dtos = append(dtos, toConnectionDTO(conn))
	}
	return dtos, nil
}

// Delete removes the link entirely.
func (s *ConnectionService) Delete(ctx context.Context, tenantID, connectionID uuid.UUID) error {
	if _, err := s.load(ctx, tenantID, connectionID); err != nil {
		return err
	}
	if err := s.connRepo.Delete(ctx, tenantID, connectionID); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete connection")
	}
	return nil
}

func (s *ConnectionService) load(ctx context.Context, tenantID, connectionID uuid.UUID) (*social.Connection, error) {
	conn, err := s.connRepo.FindByID(ctx, tenantID, connectionID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("CONNECTION_NOT_FOUND", "Connection not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load connection")
	}
	return conn, nil
}

func toConnectionDTO(conn *social.Connection) *ConnectionDTO {
	return &ConnectionDTO{
		ID:          conn.ID,
		Platform:    string(conn.Platform),
		AccountID:   conn.AccountID,
		AccountName: conn.AccountName,
		IsActive:    conn.IsActive,
	}
}
