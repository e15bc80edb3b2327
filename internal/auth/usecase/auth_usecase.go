package usecase

import (
	"context"
	"fmt"
	"time"

	authdomain "hyperagent/internal/auth/domain"
	"hyperagent/internal/auth/repository"

	"github.com/golang-jwt/jwt/v5"
)

// AuthUsecase validates bearer tokens and manages team membership.
// Sign-up and login live with the identity provider; this service only
// trusts the HS256 tokens it issues.
type AuthUsecase interface {
	ValidateToken(ctx context.Context, tokenString string) (*authdomain.User, error)
	GenerateToken(ctx context.Context, userID string) (string, error)
	RedeemInvite(ctx context.Context, userID, code string) (*authdomain.User, error)
	RegisterDevice(ctx context.Context, userID, token, deviceInfo string) error
	UnregisterDevice(ctx context.Context, token string) error
}

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo   repository.UserRepository
	inviteRepo repository.InviteCodeRepository
	fcmRepo    repository.FCMTokenRepository
	secret     []byte
	expiry     time.Duration
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, inviteRepo repository.InviteCodeRepository, fcmRepo repository.FCMTokenRepository, secret string, expiry time.Duration) AuthUsecase {
	return &authUsecase{
		userRepo:   userRepo,
		inviteRepo: inviteRepo,
		fcmRepo:    fcmRepo,
		secret:     []byte(secret),
		expiry:     expiry,
	}
}

func (u *authUsecase) ValidateToken(ctx context.Context, tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return u.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, authdomain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, authdomain.ErrInvalidToken
	}

	// user_id is what we mint; sub is what hosted auth providers use
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return nil, authdomain.ErrInvalidToken
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, authdomain.ErrUserNotFound
	}
	return user, nil
}

func (u *authUsecase) GenerateToken(ctx context.Context, userID string) (string, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", authdomain.ErrUserNotFound
	}

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(u.expiry).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(u.secret)
}

func (u *authUsecase) RedeemInvite(ctx context.Context, userID, code string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, authdomain.ErrUserNotFound
	}

	invite, err := u.inviteRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, authdomain.ErrInviteNotFound
	}

	now := time.Now()
	if !invite.Usable(now) {
		return nil, authdomain.ErrInviteUnavailable
	}
	claimed, err := u.inviteRepo.MarkUsed(ctx, code, userID, now)
	if err != nil {
		return nil, fmt.Errorf("claim invite: %w", err)
	}
	if !claimed {
		return nil, authdomain.ErrInviteUnavailable
	}

	user.CelebrityID = invite.CelebrityID
	user.Role = invite.Role
	if err := u.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *authUsecase) RegisterDevice(ctx context.Context, userID, token, deviceInfo string) error {
	return u.fcmRepo.SaveToken(ctx, userID, token, deviceInfo)
}

func (u *authUsecase) UnregisterDevice(ctx context.Context, token string) error {
	return u.fcmRepo.DeleteToken(ctx, token)
}
