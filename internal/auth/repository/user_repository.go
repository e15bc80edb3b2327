package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	authdomain "hyperagent/internal/auth/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines persistence for team members
type UserRepository interface {
	Create(ctx context.Context, user *authdomain.User) error
	FindByID(ctx context.Context, id string) (*authdomain.User, error)
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
	ListByCelebrity(ctx context.Context, celebrityID string) ([]*authdomain.User, error)
	Update(ctx context.Context, user *authdomain.User) error
}

// InviteCodeRepository defines persistence for invite codes
type InviteCodeRepository interface {
	Create(ctx context.Context, code *authdomain.InviteCode) error
	FindByCode(ctx context.Context, code string) (*authdomain.InviteCode, error)
	// MarkUsed claims an unused code for userID. It reports false when the
	// code was claimed first by someone else.
	MarkUsed(ctx context.Context, code, userID string, at time.Time) (bool, error)
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of userRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Create(ctx context.Context, user *authdomain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListByCelebrity(ctx context.Context, celebrityID string) ([]*authdomain.User, error) {
	var users []*authdomain.User
	err := r.db.WithContext(ctx).Where("celebrity_id = ?", celebrityID).Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *userRepository) Update(ctx context.Context, user *authdomain.User) error {
	user.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(user).Error
}

type inviteCodeRepository struct {
	db *gorm.DB
}

func NewInviteCodeRepository(db *gorm.DB) InviteCodeRepository {
	return &inviteCodeRepository{db: db}
}

func (r *inviteCodeRepository) Create(ctx context.Context, code *authdomain.InviteCode) error {
	code.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *inviteCodeRepository) FindByCode(ctx context.Context, code string) (*authdomain.InviteCode, error) {
	var invite authdomain.InviteCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invite, nil
}

func (r *inviteCodeRepository) MarkUsed(ctx context.Context, code, userID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&authdomain.InviteCode{}).
		Where("code = ? AND used_by IS NULL", code).
		Updates(map[string]interface{}{
			"used_by": userID,
			"used_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
