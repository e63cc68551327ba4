package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	user.ID = uuid.New()
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, newTestTokenManager())
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ivan@example.com").Return(nil, repository.ErrUserNotFound)
	repo.On("Create", ctx, mock.Anything).Return(nil)
	repo.On("CreateSession", ctx, mock.Anything).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "Ivan@example.com",
		Password: "Password1",
		Name:     "Иван",
		Role:     models.RoleContractor,
	}, map[string]string{"user_agent": "test", "ip": "127.0.0.1"})

	assert.NoError(t, err)
	assert.Equal(t, "ivan@example.com", result.User.Email)
	assert.Equal(t, models.RoleContractor, result.User.Role)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_AdminRejected(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, newTestTokenManager())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "admin@example.com",
		Password: "Password1",
		Name:     "Админ",
		Role:     models.RoleAdmin,
	}, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "роль")
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, newTestTokenManager())
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "taken@example.com").Return(&models.User{ID: uuid.New()}, nil)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "taken@example.com",
		Password: "Password1",
		Name:     "Пётр",
	}, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже зарегистрирован")
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, newTestTokenManager())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "weak@example.com",
		Password: "short",
		Name:     "Ольга",
	}, nil)

	assert.Error(t, err)
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, newTestTokenManager())
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.DefaultCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ivan@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleClient,
		IsActive:     true,
	}

	repo.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)
	repo.On("UpdateLastLoginAt", ctx, user.ID).Return(nil)
	repo.On("CreateSession", ctx, mock.Anything).Return(nil)

	result, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "Password1"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, newTestTokenManager())
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.DefaultCost)
	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", PasswordHash: string(hash), IsActive: true}

	repo.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "Wrong1pass"}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "неверный email или пароль")
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, newTestTokenManager())
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "banned@example.com", IsActive: false}
	repo.On("GetByEmail", ctx, "banned@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "banned@example.com", Password: "Password1"}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "заблокирован")
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := newTestTokenManager()
	svc := NewAuthService(repo, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleClient, IsActive: true}
	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSession", ctx, pair.RefreshToken).Return(&models.Session{UserID: user.ID, RefreshToken: pair.RefreshToken}, nil)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)
	repo.On("CreateSession", ctx, mock.Anything).Return(nil)

	newPair, err := svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, newPair.AccessToken)
	repo.AssertCalled(t, "DeleteSession", ctx, pair.RefreshToken)
}

func TestAuthService_Refresh_UnknownSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := newTestTokenManager()
	svc := NewAuthService(repo, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleClient}
	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	// Сессия уже удалена: токен одноразовый.
	repo.On("GetSession", ctx, pair.RefreshToken).Return(nil, repository.ErrUserNotFound)

	_, err = svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "сессия не найдена")
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, newTestTokenManager())

	_, err := svc.Refresh(context.Background(), "not-a-jwt", nil)
	assert.Error(t, err)
}
