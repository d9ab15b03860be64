package usecase

import (
	"context"
	"testing"
	"time"

	"store/internal/domain/model"
	repo "store/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeIssuer struct{}

func (fakeIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	return "test-token", now.Add(15 * time.Minute), nil
}

type noopAuthValidator struct{}

func (noopAuthValidator) ValidateRegister(in RegisterInput) error { return nil }
func (noopAuthValidator) ValidateLogin(in LoginInput) error      { return nil }

func newAuthUsecaseForTest() (*AuthUsecase, *MockUserRepository) {
	users := new(MockUserRepository)
	return NewAuthUsecase(users, fakeIssuer{}, noopAuthValidator{}), users
}

func hashForTest(t *testing.T, password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister_NormalizesEmailAndIssuesToken(t *testing.T) {
	uc, users := newAuthUsecaseForTest()

	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, repo.ErrUserNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "alice@example.com" &&
			u.Role == model.RoleUser &&
			u.IsActive &&
			u.PasswordHash != "password123"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 7
	}).Return(nil)

	out, err := uc.Register(context.Background(), RegisterInput{
		Email:     "  Alice@Example.COM ",
		Password:  "password123",
		FirstName: "Alice",
		LastName:  "Smith",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), out.User.ID)
	assert.Equal(t, "alice@example.com", out.User.Email)
	assert.Equal(t, "test-token", out.AccessToken)
	assert.Equal(t, 900, out.ExpiresIn)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	uc, users := newAuthUsecaseForTest()

	users.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(&model.User{ID: 1, Email: "alice@example.com"}, nil)

	_, err := uc.Register(context.Background(), RegisterInput{
		Email:     "alice@example.com",
		Password:  "password123",
		FirstName: "Alice",
		LastName:  "Smith",
	})

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 409, he.Status)
	assert.Equal(t, "email already registered", he.Message)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin_Success(t *testing.T) {
	uc, users := newAuthUsecaseForTest()

	stored := &model.User{
		ID:           7,
		Email:        "alice@example.com",
		PasswordHash: hashForTest(t, "password123"),
		Role:         model.RoleUser,
		IsActive:     true,
	}
	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(stored, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil
	})).Return(nil)

	out, err := uc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, "test-token", out.AccessToken)
	assert.Equal(t, int64(7), out.User.ID)
}

func TestLogin_SameMessageForUnknownEmailAndWrongPassword(t *testing.T) {
	uc, users := newAuthUsecaseForTest()

	users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repo.ErrUserNotFound)
	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(&model.User{
		ID:           7,
		Email:        "alice@example.com",
		PasswordHash: hashForTest(t, "password123"),
		IsActive:     true,
	}, nil)

	for _, in := range []LoginInput{
		{Email: "nobody@example.com", Password: "password123"},
		{Email: "alice@example.com", Password: "wrong-password"},
	} {
		_, err := uc.Login(context.Background(), in)
		require.Error(t, err)
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, 401, he.Status)
		assert.Equal(t, "invalid credentials", he.Message)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	uc, users := newAuthUsecaseForTest()

	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(&model.User{
		ID:           7,
		Email:        "alice@example.com",
		PasswordHash: hashForTest(t, "password123"),
		IsActive:     false,
	}, nil)

	_, err := uc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "password123"})

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 403, he.Status)
	assert.Equal(t, "user is inactive", he.Message)
}

func TestMe_NotFound(t *testing.T) {
	uc, users := newAuthUsecaseForTest()

	users.On("FindByID", mock.Anything, int64(42)).Return(nil, repo.ErrUserNotFound)

	_, err := uc.Me(context.Background(), 42)

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 404, he.Status)
	assert.Equal(t, "user not found", he.Message)
}
