package ticket

import (
	"context"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/ticket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockColumnRepository struct {
	mock.Mock
}

func (m *MockColumnRepository) Save(ctx context.Context, col *ticket.Column) error {
	args := m.Called(ctx, col)
	return args.Error(0)
}

func (m *MockColumnRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ticket.Column, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Column), args.Error(1)
}

func (m *MockColumnRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*ticket.Column, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticket.Column), args.Error(1)
}

func (m *MockColumnRepository) FindDefault(ctx context.Context, tenantID uuid.UUID) (*ticket.Column, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Column), args.Error(1)
}

func (m *MockColumnRepository) MaxPosition(ctx context.Context, tenantID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockColumnRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Save(ctx context.Context, t *ticket.Ticket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTicketRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ticket.Ticket, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func (m *MockTicketRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter ticket.TicketFilter) (*shared.Paginated[*ticket.Ticket], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*ticket.Ticket]), args.Error(1)
}

func (m *MockTicketRepository) FindByColumn(ctx context.Context, tenantID, columnID uuid.UUID) ([]*ticket.Ticket, error) {
	args := m.Called(ctx, tenantID, columnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticket.Ticket), args.Error(1)
}

func (m *MockTicketRepository) MaxPositionInColumn(ctx context.Context, tenantID, columnID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, columnID)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketRepository) MoveAllToColumn(ctx context.Context, tenantID, fromColumnID, toColumnID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, fromColumnID, toColumnID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Save(ctx context.Context, c *ticket.Comment) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCommentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ticket.Comment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Comment), args.Error(1)
}

func (m *MockCommentRepository) FindByTicket(ctx context.Context, tenantID, ticketID uuid.UUID) ([]*ticket.Comment, error) {
	args := m.Called(ctx, tenantID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticket.Comment), args.Error(1)
}

func (m *MockCommentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}
