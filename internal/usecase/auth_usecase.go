package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"store/internal/domain/model"
	repo "store/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, now time.Time) (token string, expiresAt time.Time, err error)
}

// 入力チェックの約束（実装はinternal/validator）
type AuthValidator interface {
	ValidateRegister(in RegisterInput) error
	ValidateLogin(in LoginInput) error
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserOutput struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

type AuthOutput struct {
	User        UserOutput `json:"user"`
	AccessToken string     `json:"access_token"`
	ExpiresIn   int        `json:"expires_in"`
}

type AuthUsecase struct {
	userRepo  repo.UserRepository
	issuer    AccessTokenIssuer
	validator AuthValidator
}

func NewAuthUsecase(userRepo repo.UserRepository, issuer AccessTokenIssuer, validator AuthValidator) *AuthUsecase {
	return &AuthUsecase{userRepo: userRepo, issuer: issuer, validator: validator}
}

// Register は新規ユーザー登録。emailは小文字に正規化して一意。
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (AuthOutput, error) {
	if err := u.validator.ValidateRegister(in); err != nil {
		return AuthOutput{}, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := u.userRepo.FindByEmail(ctx, email); err == nil {
		return AuthOutput{}, NewHTTPError(http.StatusConflict, "email already registered")
	} else if err != repo.ErrUserNotFound {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to hash password")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.issueFor(user)
}

// Login はメール＋パスワードの認証。
// どちらが違っても同じメッセージを返す（存在の探りを防ぐ）。
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (AuthOutput, error) {
	if err := u.validator.ValidateLogin(in); err != nil {
		return AuthOutput{}, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))

	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == repo.ErrUserNotFound {
			return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !user.IsActive {
		return AuthOutput{}, NewHTTPError(http.StatusForbidden, "user is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	//最終ログイン時刻更新（失敗しても認証は成立させる）
	now := time.Now()
	user.LastLoginAt = &now
	_ = u.userRepo.Update(ctx, user)

	return u.issueFor(user)
}

// Me はトークンのユーザー自身のプロフィールを返す。
func (u *AuthUsecase) Me(ctx context.Context, userID int64) (UserOutput, error) {
	if userID <= 0 {
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == repo.ErrUserNotFound {
			return UserOutput{}, NewHTTPError(http.StatusNotFound, "user not found")
		}
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toUserOutput(user), nil
}

func (u *AuthUsecase) issueFor(user *model.User) (AuthOutput, error) {
	now := time.Now()
	token, exp, err := u.issuer.Issue(user.ID, user.Role, now)
	if err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return AuthOutput{
		User:        toUserOutput(user),
		AccessToken: token,
		ExpiresIn:   int(exp.Sub(now).Seconds()),
	}, nil
}

func toUserOutput(user *model.User) UserOutput {
	return UserOutput{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
