package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/outdoorcamp/internal/auth"
	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MockReportUseCase is a mock implementation of reports.ReportUseCase
type MockReportUseCase struct {
	mock.Mock
}

func (m *MockReportUseCase) Stats(ctx context.Context, actor domain.Principal) (*domain.Stats, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

func (m *MockReportUseCase) Revenue(ctx context.Context, actor domain.Principal) ([]domain.MonthlyRevenue, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]domain.MonthlyRevenue), args.Error(1)
}

func (m *MockReportUseCase) BookingsTrend(ctx context.Context, actor domain.Principal) ([]domain.DailyBookings, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]domain.DailyBookings), args.Error(1)
}

func (m *MockReportUseCase) PopularProducts(ctx context.Context, actor domain.Principal) ([]domain.PopularProduct, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]domain.PopularProduct), args.Error(1)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

type routerFixture struct {
	router   *gin.Engine
	tokens   *auth.TokenManager
	bookings *MockBookingUseCase
	products *MockCatalogUseCase
	reports  *MockReportUseCase
	users    *MockUserUseCase
}

func newRouterFixture(t *testing.T, db Pinger, limiter gin.HandlerFunc) routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := routerFixture{
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
		bookings: &MockBookingUseCase{},
		products: &MockCatalogUseCase{},
		reports:  &MockReportUseCase{},
		users:    &MockUserUseCase{},
	}
	f.router = NewRouter(RouterConfig{
		ServiceName: "outdoorcamp-test",
		CORSOrigins: []string{"*"},
		Tokens:      f.tokens,
		AuthLimiter: limiter,
		DB:          db,
	}, Handlers{
		Auth:     NewAuthHandler(f.users),
		Products: NewProductHandler(f.products),
		Bookings: NewBookingHandler(f.bookings),
		Payments: NewPaymentHandler(&MockPaymentUseCase{}),
		Users:    NewUserHandler(f.users),
		Reports:  NewReportHandler(f.reports),
	})
	return f
}

func (f routerFixture) do(t *testing.T, method, path string, principal *domain.Principal) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if principal != nil {
		token, err := f.tokens.Issue(*principal)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouter_Root(t *testing.T) {
	f := newRouterFixture(t, stubPinger{}, nil)

	w := f.do(t, "GET", "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OutdoorCamp API")
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t, stubPinger{}, nil)
	w := f.do(t, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"connected"}`, w.Body.String())

	f = newRouterFixture(t, stubPinger{err: errors.New("down")}, nil)
	w = f.do(t, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "disconnected")
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newRouterFixture(t, stubPinger{}, nil)

	w := f.do(t, "GET", "/api/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/api/bookings", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	f.bookings.AssertNotCalled(t, "ListBookings", mock.Anything, mock.Anything)
}

func TestRouter_AuthenticatedBookingList(t *testing.T) {
	f := newRouterFixture(t, stubPinger{}, nil)

	f.bookings.On("ListBookings", mock.Anything, testUser).Return([]domain.Booking{}, nil).Once()

	w := f.do(t, "GET", "/api/bookings", &testUser)

	assert.Equal(t, http.StatusOK, w.Code)
	f.bookings.AssertExpectations(t)
}

func TestRouter_AdminRoutes(t *testing.T) {
	f := newRouterFixture(t, stubPinger{}, nil)

	w := f.do(t, "GET", "/api/reports/stats", &testUser)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "admin access required")

	w = f.do(t, "DELETE", "/api/products/"+uuid.NewString(), &testUser)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, "GET", "/api/users", &testUser)
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.reports.On("Stats", mock.Anything, testAdmin).Return(&domain.Stats{}, nil).Once()
	w = f.do(t, "GET", "/api/reports/stats", &testAdmin)
	assert.Equal(t, http.StatusOK, w.Code)

	f.products.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestRouter_ProductsVisibleToUsers(t *testing.T) {
	f := newRouterFixture(t, stubPinger{}, nil)

	f.products.On("List", mock.Anything).Return([]domain.Product{}, nil).Once()

	w := f.do(t, "GET", "/api/products", &testUser)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AuthRateLimited(t *testing.T) {
	limiter, err := NewRateLimiter(memory.NewStore(), "2-M")
	require.NoError(t, err)
	f := newRouterFixture(t, stubPinger{}, limiter)

	f.users.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidCredentials)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"email":"rani@example.com","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestNewRateLimiter_InvalidRate(t *testing.T) {
	_, err := NewRateLimiter(memory.NewStore(), "ten per minute")
	assert.Error(t, err)
}
