package ticket

import (
	"context"
	"testing"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/domain/ticket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type boardFixture struct {
	colRepo    *MockColumnRepository
	ticketRepo *MockTicketRepository
	service    *BoardService
}

func newBoardFixture() *boardFixture {
	f := &boardFixture{
		colRepo:    new(MockColumnRepository),
		ticketRepo: new(MockTicketRepository),
	}
	f.service = NewBoardService(f.colRepo, f.ticketRepo, zap.NewNop())
	return f
}

func newTestColumn(t *testing.T, tenantID uuid.UUID, name string, position int) *ticket.Column {
	t.Helper()
	col, err := ticket.NewColumn(tenantID, name, position)
	require.NoError(t, err)
	return col
}

func TestBoardService_CreateColumn_AppendsAfterRightmost(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()

	f.colRepo.On("MaxPosition", mock.Anything, tenantID).Return(2, nil)
	var saved *ticket.Column
	f.colRepo.On("Save", mock.Anything, mock.AnythingOfType("*ticket.Column")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*ticket.Column) }).
		Return(nil)

	dto, err := f.service.CreateColumn(context.Background(), tenantID, CreateColumnInput{
		Name:  "Waiting on customer",
		Color: "#F59E0B",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, dto.Position, "new lane lands after the rightmost column")
	assert.Equal(t, "#F59E0B", dto.Color)
	require.NotNil(t, saved)
	assert.False(t, saved.IsDefault)
}

func TestBoardService_CreateColumn_ExplicitPosition(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()
	position := 0

	f.colRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.CreateColumn(context.Background(), tenantID, CreateColumnInput{
		Name:     "Triage",
		Position: &position,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, dto.Position)
	f.colRepo.AssertNotCalled(t, "MaxPosition", mock.Anything, mock.Anything)
}

func TestBoardService_CreateColumn_DefaultMovesFlag(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()
	current := newTestColumn(t, tenantID, "Inbox", 0)
	current.MakeDefault()

	f.colRepo.On("MaxPosition", mock.Anything, tenantID).Return(0, nil)
	f.colRepo.On("FindDefault", mock.Anything, tenantID).Return(current, nil)
	f.colRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.CreateColumn(context.Background(), tenantID, CreateColumnInput{
		Name:      "New inbox",
		IsDefault: true,
	})

	require.NoError(t, err)
	assert.True(t, dto.IsDefault)
	assert.False(t, current.IsDefault, "previous default lane loses the flag")
}

func TestBoardService_CreateColumn_InvalidColor(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()
	position := 1

	_, err := f.service.CreateColumn(context.Background(), tenantID, CreateColumnInput{
		Name:     "Bad",
		Color:    "red",
		Position: &position,
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_COLOR", domainErr.Code)
}

func TestBoardService_DeleteColumn_MovesTicketsToDefault(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()
	doomed := newTestColumn(t, tenantID, "Old lane", 2)
	def := newTestColumn(t, tenantID, "Inbox", 0)
	def.MakeDefault()

	f.colRepo.On("FindByID", mock.Anything, tenantID, doomed.ID).Return(doomed, nil)
	f.colRepo.On("FindDefault", mock.Anything, tenantID).Return(def, nil)
	f.ticketRepo.On("MoveAllToColumn", mock.Anything, tenantID, doomed.ID, def.ID).
		Return(int64(5), nil)
	f.colRepo.On("Delete", mock.Anything, tenantID, doomed.ID).Return(nil)

	err := f.service.DeleteColumn(context.Background(), tenantID, doomed.ID)

	require.NoError(t, err)
	f.ticketRepo.AssertExpectations(t)
	f.colRepo.AssertExpectations(t)
}

func TestBoardService_DeleteColumn_DefaultRefused(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()
	def := newTestColumn(t, tenantID, "Inbox", 0)
	def.MakeDefault()

	f.colRepo.On("FindByID", mock.Anything, tenantID, def.ID).Return(def, nil)

	err := f.service.DeleteColumn(context.Background(), tenantID, def.ID)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DEFAULT_COLUMN", domainErr.Code)
	f.ticketRepo.AssertNotCalled(t, "MoveAllToColumn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBoardService_ReorderColumns(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()
	a := newTestColumn(t, tenantID, "A", 0)
	b := newTestColumn(t, tenantID, "B", 1)
	c := newTestColumn(t, tenantID, "C", 2)

	f.colRepo.On("FindAll", mock.Anything, tenantID).Return([]*ticket.Column{a, b, c}, nil)
	f.colRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	dtos, err := f.service.ReorderColumns(context.Background(), tenantID,
		[]uuid.UUID{c.ID, a.ID, b.ID})

	require.NoError(t, err)
	require.Len(t, dtos, 3)
	assert.Equal(t, 0, c.Position)
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 2, b.Position)
}

func TestBoardService_ReorderColumns_IncompleteOrdering(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()
	a := newTestColumn(t, tenantID, "A", 0)
	b := newTestColumn(t, tenantID, "B", 1)

	f.colRepo.On("FindAll", mock.Anything, tenantID).Return([]*ticket.Column{a, b}, nil)

	_, err := f.service.ReorderColumns(context.Background(), tenantID, []uuid.UUID{a.ID})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_ORDER", domainErr.Code)
}

func TestBoardService_UpdateColumn_Partial(t *testing.T) {
	f := newBoardFixture()
	tenantID := uuid.New()
	col := newTestColumn(t, tenantID, "Doing", 1)

	f.colRepo.On("FindByID", mock.Anything, tenantID, col.ID).Return(col, nil)
	f.colRepo.On("Save", mock.Anything, col).Return(nil)

	closed := true
	dto, err := f.service.UpdateColumn(context.Background(), tenantID, col.ID, UpdateColumnInput{
		IsClosedStatus: &closed,
	})

	require.NoError(t, err)
	assert.True(t, dto.IsClosedStatus)
	assert.Equal(t, "Doing", dto.Name, "unset fields keep their values")
}
