package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"
)

func newUserUsecase(users *UserRepoMock, refresh *RefreshTokenRepoMock) *usecase.UserUsecase {
	auth := usecase.NewAuthUsecase(users, refresh, new(RevokedTokenRepoMock), testJWTSecret)
	return usecase.NewUserUsecase(users, auth)
}

func TestUserUsecase_Me_NotFound(t *testing.T) {
	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(1)).Return(model.User{}, repo.ErrNotFound)

	uc := newUserUsecase(users, new(RefreshTokenRepoMock))

	_, err := uc.Me(context.Background(), 1)
	assertErrContains(t, err, "user not found")
}

func TestUserUsecase_UpdateMe_PartialUpdate(t *testing.T) {
	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(1)).Return(model.User{
		ID: 1, Username: "old", FirstName: "Taro", LastName: "Yamada",
	}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		//指定したフィールドだけ変わる
		return u.Username == "newname" && u.FirstName == "Taro"
	})).Return(nil)

	uc := newUserUsecase(users, new(RefreshTokenRepoMock))

	username := "newname"
	out, err := uc.UpdateMe(context.Background(), 1, usecase.UpdateMeInput{Username: &username})
	assert.NoError(t, err)
	assert.Equal(t, "newname", out.Username)

	users.AssertExpectations(t)
}

func TestUserUsecase_ChangePassword_WrongCurrent(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)

	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(1)).Return(model.User{ID: 1, PasswordHash: string(hash)}, nil)

	uc := newUserUsecase(users, new(RefreshTokenRepoMock))

	err := uc.ChangePassword(context.Background(), 1, usecase.ChangePasswordInput{
		CurrentPassword: "wrong",
		NewPassword:     "new-password-1",
	})
	assertErrContains(t, err, "current password")
}

func TestUserUsecase_ChangePassword_RevokesAllSessions(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-pass"), bcrypt.MinCost)

	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(1)).Return(model.User{ID: 1, PasswordHash: string(hash)}, nil)
	users.On("UpdatePasswordHash", mock.Anything, int64(1), mock.MatchedBy(func(h string) bool {
		return bcrypt.CompareHashAndPassword([]byte(h), []byte("new-password-1")) == nil
	})).Return(nil)

	refresh := new(RefreshTokenRepoMock)
	refresh.On("RevokeAllByUserID", mock.Anything, int64(1)).Return(nil)

	uc := newUserUsecase(users, refresh)

	err := uc.ChangePassword(context.Background(), 1, usecase.ChangePasswordInput{
		CurrentPassword: "correct-pass",
		NewPassword:     "new-password-1",
	})
	assert.NoError(t, err)

	users.AssertExpectations(t)
	refresh.AssertExpectations(t)
}
