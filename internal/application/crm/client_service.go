package crm

import (
	"context"

	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateClientInput adds a customer contact.
type CreateClientInput struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
}

// UpdateClientInput edits a contact. Nil pointers leave fields as-is.
type UpdateClientInput struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
}

// ClientDTO is the read model for a contact.
type ClientDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Company  string    `json:"company,omitempty"`
	IsActive bool      `json:"is_active"`
}

// ClientService manages the tenant's customer contacts.
type ClientService struct {
	clientRepo crm.ClientRepository
	logger     *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo crm.ClientRepository, logger *zap.Logger) *ClientService {
	return &ClientService{clientRepo: clientRepo, logger: logger}
}

// Create adds a contact. Phone numbers are unique per tenant so calls
// can be linked unambiguously.
func (s *ClientService) Create(ctx context.Context, tenantID uuid.UUID, input CreateClientInput) (*ClientDTO, error) {
	if input.Phone != "" {
		if _, err := s.clientRepo.FindByPhone(ctx, tenantID, input.Phone); err == nil {
			return nil, shared.NewDomainError("PHONE_EXISTS", "A client with this phone number already exists")
		} else if err != shared.ErrNotFound {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check phone number")
		}
	}

	client, err := crm.NewClient(tenantID, input.Name, input.Email, input.Phone)
	if err != nil {
		return nil, err
	}
	client.Company = input.Company

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save client")
	}

	s.logger.Info("Client created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("client_id", client.ID.String()))
	return toClientDTO(client), nil
}

// Update edits a contact's fields.
func (s *ClientService) Update(ctx context.Context, tenantID, clientID uuid.UUID, input UpdateClientInput) (*ClientDTO, error) {
	client, err := s.load(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}

	name, email, phone, company := client.Name, client.Email, client.Phone, client.Company
	if input.Name != nil {
		name = *input.Name
	}
	if input.Email != nil {
		email = *input.Email
	}
	if input.Phone != nil {
		phone = *input.Phone
	}
	if input.Company != nil {
		company = *input.Company
	}
	if err := client.Update(name, email, phone, company); err != nil {
		return nil, err
	}

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save client")
	}
	return toClientDTO(client), nil
}

// Get returns one contact.
func (s *ClientService) Get(ctx context.Context, tenantID, clientID uuid.UUID) (*ClientDTO, error) {
	client, err := s.load(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	return toClientDTO(client), nil
}

// List returns contacts matching the filter.
func (s *ClientService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ClientDTO], error) {
	page, err := s.clientRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list clients")
	}
	dtos := make([]*ClientDTO, 0, len(page.Items))
	for _, client := range page.Items {
		dtos = append(dtos, toClientDTO(client))
	}
	return &shared.Paginated[*ClientDTO]{
		Items:      dtos,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// Deactivate hides a contact without losing its call history.
func (s *ClientService) Deactivate(ctx context.Context, tenantID, clientID uuid.UUID) error {
	client, err := s.load(ctx, tenantID, clientID)
	if err != nil {
		return err
	}
	client.Deactivate()
	if err := s.clientRepo.Save(ctx, client); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save client")
	}
	return nil
}

// Delete removes a contact entirely.
func (s *ClientService) Delete(ctx context.Context, tenantID, clientID uuid.UUID) error {
	if _, err := s.load(ctx, tenantID, clientID); err != nil {
		return err
	}
	if err := s.clientRepo.Delete(ctx, tenantID, clientID); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete client")
	}
	return nil
}

func (s *ClientService) load(ctx context.Context, tenantID, clientID uuid.UUID) (*crm.Client, error) {
	client, err := s.clientRepo.FindByID(ctx, tenantID, clientID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("CLIENT_NOT_FOUND", "Client not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load client")
	}
	return client, nil
}

func toClientDTO(client *crm.Client) *ClientDTO {
	return &ClientDTO{
		ID:       client.ID,
		Name:     client.Name,
		Email:    client.Email,
		Phone:    client.Phone,
		Company:  client.Company,
		IsActive: client.IsActive,
	}
}
