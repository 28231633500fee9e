package usecase

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	repo "app/internal/repository"
)

type UserUsecase struct {
	users repo.UserRepository
	auth  *AuthUsecase
}

func NewUserUsecase(users repo.UserRepository, auth *AuthUsecase) *UserUsecase {
	return &UserUsecase{users: users, auth: auth}
}

func (u *UserUsecase) Me(ctx context.Context, userID int64) (UserOutput, error) {
	if userID <= 0 {
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return UserOutput{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toUserOutput(user), nil
}

type UpdateMeInput struct {
	Username  *string
	FirstName *string
	LastName  *string
	Phone     *string
}

// プロフィール更新。email・role・passwordはここでは変更できない。
func (u *UserUsecase) UpdateMe(ctx context.Context, userID int64, in UpdateMeInput) (UserOutput, error) {
	if userID <= 0 {
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return UserOutput{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return UserOutput{}, NewHTTPError(http.StatusBadRequest, "username must not be empty")
		}
		user.Username = username
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}

	if err := u.users.Update(ctx, user); err != nil {
		return UserOutput{}, NewHTTPError(http.StatusConflict, "username already taken")
	}
	return toUserOutput(user), nil
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// パスワード変更。成功したら全リフレッシュトークンを失効させる。
func (u *UserUsecase) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(in.NewPassword) < 8 {
		return NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return NewHTTPError(http.StatusUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "hash error")
	}

	if err := u.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.auth.RevokeAllSessions(ctx, userID)
}
