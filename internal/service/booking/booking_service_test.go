package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/kafka"
	"github.com/Domenick1991/outdoorcamp/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, id uuid.UUID, patch domain.BookingPatch) (*domain.Booking, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CancelAndRelease(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateProducts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func userPrincipal() domain.Principal {
	return domain.Principal{UserID: uuid.New(), Email: "rani@example.com", Role: domain.RoleUser}
}

func adminPrincipal() domain.Principal {
	return domain.Principal{UserID: uuid.New(), Email: "admin@outdoorcamp.id", Role: domain.RoleAdmin}
}

func validInput(productID uuid.UUID, qty int) CreateBookingInput {
	return CreateBookingInput{ProductID: productID, StartDate: "2026-11-01", EndDate: "2026-11-03", Quantity: qty}
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}

	service := &BookingService{
		bookings:           mockRepo,
		cache:              mockCache,
		producer:           mockProducer,
		bookingTopic:       "booking-events",
		notificationsTopic: "notifications",
	}

	actor := userPrincipal()
	productID := uuid.New()

	mockRepo.On("CreatePending", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.UserID == actor.UserID && b.ProductID == productID && b.Quantity == 2
	})).Run(func(args mock.Arguments) {
		b := args.Get(1).(*domain.Booking)
		b.Status = domain.BookingStatusPending
		b.ProductName = "Dome Tent 4P"
		b.TotalPrice = domain.TotalPrice(decimal.NewFromInt(150000), b.Quantity)
	}).Return(nil).Once()
	mockCache.On("InvalidateProducts", mock.Anything).Return(nil).Once()
	mockProducer.On("Publish", mock.Anything, "booking-events", mock.Anything, mock.MatchedBy(func(e kafka.Event) bool {
		return e.Type == kafka.EventBookingCreated
	})).Return(nil).Once()
	mockProducer.On("Publish", mock.Anything, "notifications", mock.Anything, mock.Anything).Return(nil).Once()

	booking, err := service.CreateBooking(context.Background(), actor, validInput(productID, 2))

	assert.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, "Dome Tent 4P", booking.ProductName)
	assert.True(t, booking.TotalPrice.Equal(decimal.NewFromInt(300000)))
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_CreateBooking_Validation(t *testing.T) {
	service := &BookingService{bookings: &MockBookingRepository{}}
	productID := uuid.New()

	tests := []struct {
		name  string
		input CreateBookingInput
	}{
		{"zero quantity", validInput(productID, 0)},
		{"negative quantity", validInput(productID, -1)},
		{"missing product", validInput(uuid.Nil, 1)},
		{"missing dates", CreateBookingInput{ProductID: productID, Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateBooking(context.Background(), userPrincipal(), tt.input)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestBookingService_CreateBooking_InsufficientStock(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := NewBookingService(mockRepo, mockCache, mockProducer, "booking-events")

	mockRepo.On("CreatePending", mock.Anything, mock.Anything).Return(domain.ErrInsufficientStock).Once()

	booking, err := service.CreateBooking(context.Background(), userPrincipal(), validInput(uuid.New(), 5))

	assert.Nil(t, booking)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	mockCache.AssertNotCalled(t, "InvalidateProducts", mock.Anything)
	mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CreateBooking_ProductNotFound(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := NewBookingService(mockRepo, nil, nil, "")

	mockRepo.On("CreatePending", mock.Anything, mock.Anything).Return(domain.ErrProductNotFound).Once()

	_, err := service.CreateBooking(context.Background(), userPrincipal(), validInput(uuid.New(), 1))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_CreateBooking_PublishFailureIgnored(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := NewBookingService(mockRepo, mockCache, mockProducer, "booking-events")

	mockRepo.On("CreatePending", mock.Anything, mock.Anything).Return(nil).Once()
	mockCache.On("InvalidateProducts", mock.Anything).Return(errors.New("redis down")).Once()
	mockProducer.On("Publish", mock.Anything, "booking-events", mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	booking, err := service.CreateBooking(context.Background(), userPrincipal(), validInput(uuid.New(), 1))

	assert.NoError(t, err)
	assert.NotNil(t, booking)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_GetBooking_Ownership(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := NewBookingService(mockRepo, nil, nil, "")

	owner := userPrincipal()
	stranger := userPrincipal()
	booking := &domain.Booking{ID: uuid.New(), UserID: owner.UserID}
	mockRepo.On("GetByID", mock.Anything, booking.ID).Return(booking, nil)

	got, err := service.GetBooking(context.Background(), owner, booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, booking, got)

	_, err = service.GetBooking(context.Background(), stranger, booking.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err = service.GetBooking(context.Background(), adminPrincipal(), booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, booking, got)
}

func TestBookingService_GetBooking_NotFound(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := NewBookingService(mockRepo, nil, nil, "")
	id := uuid.New()

	mockRepo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrBookingNotFound)

	_, err := service.GetBooking(context.Background(), adminPrincipal(), id)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_ListBookings_ScopedToCaller(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := NewBookingService(mockRepo, nil, nil, "")
	actor := userPrincipal()

	own := []domain.Booking{{ID: uuid.New(), UserID: actor.UserID}}
	mockRepo.On("List", mock.Anything, mock.MatchedBy(func(f repository.BookingFilter) bool {
		return f.UserID != nil && *f.UserID == actor.UserID
	})).Return(own, nil).Once()

	got, err := service.ListBookings(context.Background(), actor)

	assert.NoError(t, err)
	assert.Equal(t, own, got)
	mockRepo.AssertExpectations(t)
}

func TestBookingService_ListBookings_AdminSeesAll(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := NewBookingService(mockRepo, nil, nil, "")

	all := []domain.Booking{{ID: uuid.New(), UserID: uuid.New()}, {ID: uuid.New(), UserID: uuid.New()}}
	mockRepo.On("List", mock.Anything, repository.BookingFilter{}).Return(all, nil).Once()

	got, err := service.ListBookings(context.Background(), adminPrincipal())

	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestBookingService_UpdateBooking(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	service := NewBookingService(mockRepo, nil, mockProducer, "booking-events")

	actor := userPrincipal()
	booking := &domain.Booking{ID: uuid.New(), UserID: actor.UserID, Quantity: 1, Status: domain.BookingStatusPending}
	quantity := 3
	notes := "bring extra pegs"
	patch := domain.BookingPatch{Quantity: &quantity, Notes: &notes}
	updated := &domain.Booking{ID: booking.ID, UserID: actor.UserID, Quantity: 3, Notes: &notes, Status: domain.BookingStatusPending}

	mockRepo.On("GetByID", mock.Anything, booking.ID).Return(booking, nil).Once()
	mockRepo.On("Update", mock.Anything, booking.ID, patch).Return(updated, nil).Once()
	mockProducer.On("Publish", mock.Anything, "booking-events", booking.ID.String(), mock.Anything).Return(nil).Once()

	got, err := service.UpdateBooking(context.Background(), actor, booking.ID, patch)

	assert.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	mockRepo.AssertExpectations(t)
}

func TestBookingService_UpdateBooking_RejectsBadPatch(t *testing.T) {
	service := NewBookingService(&MockBookingRepository{}, nil, nil, "")
	status := domain.BookingStatus("expired")
	zero := 0

	_, err := service.UpdateBooking(context.Background(), adminPrincipal(), uuid.New(), domain.BookingPatch{Status: &status})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = service.UpdateBooking(context.Background(), adminPrincipal(), uuid.New(), domain.BookingPatch{Quantity: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBookingService_UpdateBooking_Forbidden(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := NewBookingService(mockRepo, nil, nil, "")
	booking := &domain.Booking{ID: uuid.New(), UserID: uuid.New()}
	status := domain.BookingStatusCompleted

	mockRepo.On("GetByID", mock.Anything, booking.ID).Return(booking, nil).Once()

	_, err := service.UpdateBooking(context.Background(), userPrincipal(), booking.ID, domain.BookingPatch{Status: &status})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CancelBooking_Success(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := NewBookingService(mockRepo, mockCache, mockProducer, "booking-events")

	actor := userPrincipal()
	booking := &domain.Booking{ID: uuid.New(), UserID: actor.UserID, Quantity: 2}
	cancelled := &domain.Booking{ID: booking.ID, UserID: actor.UserID, Quantity: 2, Status: domain.BookingStatusCancelled}

	mockRepo.On("GetByID", mock.Anything, booking.ID).Return(booking, nil).Once()
	mockRepo.On("CancelAndRelease", mock.Anything, booking.ID).Return(cancelled, nil).Once()
	mockCache.On("InvalidateProducts", mock.Anything).Return(nil).Once()
	mockProducer.On("Publish", mock.Anything, "booking-events", booking.ID.String(), mock.MatchedBy(func(e kafka.Event) bool {
		return e.Type == kafka.EventBookingCancelled
	})).Return(nil).Once()

	got, err := service.CancelBooking(context.Background(), actor, booking.ID)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_CancelBooking_Forbidden(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	service := NewBookingService(mockRepo, nil, nil, "")
	booking := &domain.Booking{ID: uuid.New(), UserID: uuid.New()}

	mockRepo.On("GetByID", mock.Anything, booking.ID).Return(booking, nil).Once()

	_, err := service.CancelBooking(context.Background(), userPrincipal(), booking.ID)

	assert.ErrorIs(t, err, domain.ErrForbidden)
	mockRepo.AssertNotCalled(t, "CancelAndRelease", mock.Anything, mock.Anything)
}

// memoryBookingRepository keeps products and bookings in maps and applies the
// same conditional stock update as the Postgres repository.
type memoryBookingRepository struct {
	mu       sync.Mutex
	stock    map[uuid.UUID]int
	price    map[uuid.UUID]decimal.Decimal
	bookings map[uuid.UUID]domain.Booking
}

func newMemoryBookingRepository() *memoryBookingRepository {
	return &memoryBookingRepository{
		stock:    map[uuid.UUID]int{},
		price:    map[uuid.UUID]decimal.Decimal{},
		bookings: map[uuid.UUID]domain.Booking{},
	}
}

func (r *memoryBookingRepository) addProduct(stock int, price int64) uuid.UUID {
	id := uuid.New()
	r.stock[id] = stock
	r.price[id] = decimal.NewFromInt(price)
	return id
}

func (r *memoryBookingRepository) stockOf(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stock[id]
}

func (r *memoryBookingRepository) CreatePending(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stock, ok := r.stock[b.ProductID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if stock < b.Quantity {
		return domain.ErrInsufficientStock
	}
	r.stock[b.ProductID] = stock - b.Quantity
	b.Status = domain.BookingStatusPending
	b.TotalPrice = domain.TotalPrice(r.price[b.ProductID], b.Quantity)
	r.bookings[b.ID] = *b
	return nil
}

func (r *memoryBookingRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (r *memoryBookingRepository) List(_ context.Context, filter repository.BookingFilter) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Booking, 0)
	for _, b := range r.bookings {
		if filter.UserID == nil || *filter.UserID == b.UserID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryBookingRepository) ListIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	bookings, _ := r.List(ctx, repository.BookingFilter{UserID: &userID})
	ids := make([]uuid.UUID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (r *memoryBookingRepository) Update(_ context.Context, id uuid.UUID, patch domain.BookingPatch) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if patch.Quantity != nil {
		b.Quantity = *patch.Quantity
	}
	if patch.Status != nil {
		b.Status = *patch.Status
	}
	r.bookings[id] = b
	return &b, nil
}

func (r *memoryBookingRepository) CancelAndRelease(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	delete(r.bookings, id)
	if _, ok := r.stock[b.ProductID]; ok {
		r.stock[b.ProductID] += b.Quantity
	}
	b.Status = domain.BookingStatusCancelled
	return &b, nil
}

func TestBookingService_StockLifecycle(t *testing.T) {
	repo := newMemoryBookingRepository()
	productID := repo.addProduct(5, 100000)
	service := NewBookingService(repo, nil, nil, "")
	actor := userPrincipal()
	ctx := context.Background()

	booking, err := service.CreateBooking(ctx, actor, validInput(productID, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.stockOf(productID))
	assert.True(t, booking.TotalPrice.Equal(decimal.NewFromInt(300000)))

	_, err = service.CreateBooking(ctx, actor, validInput(productID, 3))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 2, repo.stockOf(productID))

	_, err = service.CancelBooking(ctx, actor, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, repo.stockOf(productID))

	_, err = service.CancelBooking(ctx, actor, booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 5, repo.stockOf(productID))
}

func TestBookingService_UpdateQuantityKeepsStock(t *testing.T) {
	repo := newMemoryBookingRepository()
	productID := repo.addProduct(10, 50000)
	service := NewBookingService(repo, nil, nil, "")
	actor := userPrincipal()
	ctx := context.Background()

	booking, err := service.CreateBooking(ctx, actor, validInput(productID, 2))
	require.NoError(t, err)

	quantity := 6
	_, err = service.UpdateBooking(ctx, actor, booking.ID, domain.BookingPatch{Quantity: &quantity})
	require.NoError(t, err)
	assert.Equal(t, 8, repo.stockOf(productID))
}

func TestBookingService_ConcurrentCreatesNeverOversell(t *testing.T) {
	repo := newMemoryBookingRepository()
	productID := repo.addProduct(10, 1000)
	service := NewBookingService(repo, nil, nil, "")
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.CreateBooking(ctx, userPrincipal(), validInput(productID, 1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, repo.stockOf(productID))
}

func TestBookingService_ListNeverLeaksOtherUsers(t *testing.T) {
	repo := newMemoryBookingRepository()
	productID := repo.addProduct(10, 1000)
	service := NewBookingService(repo, nil, nil, "")
	ctx := context.Background()
	alice, bob := userPrincipal(), userPrincipal()

	_, err := service.CreateBooking(ctx, alice, validInput(productID, 1))
	require.NoError(t, err)
	_, err = service.CreateBooking(ctx, bob, validInput(productID, 1))
	require.NoError(t, err)

	got, err := service.ListBookings(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, alice.UserID, got[0].UserID)

	all, err := service.ListBookings(ctx, adminPrincipal())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
