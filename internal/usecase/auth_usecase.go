package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

type AuthUsecase struct {
	users         repo.UserRepository
	refreshTokens repo.RefreshTokenRepository
	revokedTokens repo.RevokedTokenRepository
	jwtSecret     []byte
}

func NewAuthUsecase(
	users repo.UserRepository,
	refreshTokens repo.RefreshTokenRepository,
	revokedTokens repo.RevokedTokenRepository,
	jwtSecret string,
) *AuthUsecase {
	return &AuthUsecase{
		users:         users,
		refreshTokens: refreshTokens,
		revokedTokens: revokedTokens,
		jwtSecret:     []byte(jwtSecret),
	}
}

type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

type UserOutput struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type TokenPairOutput struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         UserOutput `json:"user"`
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	if email == "" || !strings.Contains(email, "@") {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "valid email is required")
	}
	if username == "" {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "username is required")
	}
	if len(in.Password) < 8 {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return UserOutput{}, NewHTTPError(http.StatusConflict, "email already registered")
	} else if err != repo.ErrNotFound {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "hash error")
	}

	created, err := u.users.Create(ctx, model.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		//emailのuniqueIndexに当たった場合もここに来る
		return UserOutput{}, NewHTTPError(http.StatusConflict, "email or username already registered")
	}

	return toUserOutput(created), nil
}

type LoginInput struct {
	Email    string
	Password string
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (TokenPairOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return TokenPairOutput{}, NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err == repo.ErrNotFound {
		//存在しないユーザーとパスワード不一致は同じ応答にする
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !user.IsActive {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	pair, err := u.issueTokens(ctx, user)
	if err != nil {
		return TokenPairOutput{}, err
	}

	_ = u.users.TouchLastLogin(ctx, user.ID)

	return pair, nil
}

type RefreshInput struct {
	RefreshToken string
}

// リフレッシュトークンのローテーション。
// 1回使ったトークンは使用済みになり再利用できない。
func (u *AuthUsecase) Refresh(ctx context.Context, in RefreshInput) (TokenPairOutput, error) {
	raw := strings.TrimSpace(in.RefreshToken)
	if raw == "" {
		return TokenPairOutput{}, NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	stored, err := u.refreshTokens.FindByHash(ctx, hashToken(raw))
	if err == repo.ErrNotFound {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if stored.RevokedAt != nil || stored.UsedAt != nil || time.Now().After(stored.ExpiresAt) {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	user, err := u.users.FindByID(ctx, stored.UserID)
	if err == repo.ErrNotFound {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !user.IsActive {
		return TokenPairOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	if err := u.refreshTokens.MarkUsed(ctx, stored.ID); err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.issueTokens(ctx, user)
}

type LogoutInput struct {
	AccessJTI    string
	UserID       int64
	AccessExpiry time.Time
	RefreshToken string
}

// ログアウト。アクセストークンのjtiを失効ストアへ、
// リフレッシュトークンがあればそれも失効させる。
func (u *AuthUsecase) Logout(ctx context.Context, in LogoutInput) error {
	if in.AccessJTI != "" {
		exp := in.AccessExpiry
		if exp.IsZero() {
			exp = time.Now().Add(accessTokenTTL)
		}
		if err := u.revokedTokens.Revoke(ctx, model.RevokedToken{
			JTI:       in.AccessJTI,
			UserID:    in.UserID,
			ExpiresAt: exp,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	if raw := strings.TrimSpace(in.RefreshToken); raw != "" {
		stored, err := u.refreshTokens.FindByHash(ctx, hashToken(raw))
		if err == nil && stored.UserID == in.UserID {
			if err := u.refreshTokens.Revoke(ctx, stored.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else if err != nil && err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return nil
}

// 全デバイスログアウト（パスワード変更時などに呼ぶ）
func (u *AuthUsecase) RevokeAllSessions(ctx context.Context, userID int64) error {
	if err := u.refreshTokens.RevokeAllByUserID(ctx, userID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *AuthUsecase) issueTokens(ctx context.Context, user model.User) (TokenPairOutput, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"jti":  jti,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.jwtSecret)
	if err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "token error")
	}

	//リフレッシュトークンはランダム値。DBにはsha256だけ保存する。
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "token error")
	}
	refreshRaw := hex.EncodeToString(raw)

	if err := u.refreshTokens.Create(ctx, model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshRaw),
		ExpiresAt: now.Add(refreshTokenTTL),
	}); err != nil {
		return TokenPairOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return TokenPairOutput{
		AccessToken:  access,
		RefreshToken: refreshRaw,
		User:         toUserOutput(user),
	}, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func toUserOutput(u model.User) UserOutput {
	return UserOutput{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
