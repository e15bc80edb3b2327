package repository

import (
	"context"
	"errors"
	"time"

	"hyperagent/internal/messaging/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormThreadRepository struct {
	db *gorm.DB
}

func NewGormThreadRepository(db *gorm.DB) ThreadRepository {
	return &gormThreadRepository{db: db}
}

func (r *gormThreadRepository) FindByID(ctx context.Context, id string) (*domain.EmailThread, error) {
	var thread domain.EmailThread
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *gormThreadRepository) FindByOpportunity(ctx context.Context, opportunityID string) (*domain.EmailThread, error) {
	var thread domain.EmailThread
	err := r.db.WithContext(ctx).Where("opportunity_id = ?", opportunityID).First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *gormThreadRepository) Create(ctx context.Context, thread *domain.EmailThread) error {
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	if thread.Status == "" {
		thread.Status = domain.ThreadActive
	}
	now := time.Now()
	thread.CreatedAt = now
	thread.UpdatedAt = now
	if thread.LastMessageAt.IsZero() {
		thread.LastMessageAt = now
	}
	// A concurrent writer may have created the thread; the unique index on
	// opportunity_id keeps one row and the caller re-reads it.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "opportunity_id"}}, DoNothing: true}).
		Create(thread).Error
}

func (r *gormThreadRepository) UpdateStatus(ctx context.Context, id string, status domain.ThreadStatus) error {
	return r.db.WithContext(ctx).Model(&domain.EmailThread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func (r *gormThreadRepository) AppendMessage(ctx context.Context, msg *domain.EmailMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&domain.EmailThread{}).
			Where("id = ? AND last_message_at < ?", msg.ThreadID, msg.CreatedAt).
			Updates(map[string]interface{}{"last_message_at": msg.CreatedAt, "updated_at": time.Now()}).Error
	})
}

func (r *gormThreadRepository) ListMessages(ctx context.Context, threadID string) ([]*domain.EmailMessage, error) {
	var msgs []*domain.EmailMessage
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).Order("created_at ASC").Find(&msgs).Error
	return msgs, err
}

type gormTwitterRepository struct {
	db *gorm.DB
}

func NewGormTwitterRepository(db *gorm.DB) TwitterRepository {
	return &gormTwitterRepository{db: db}
}

func (r *gormTwitterRepository) ListAccounts(ctx context.Context) ([]*domain.TwitterAuth, error) {
	var accounts []*domain.TwitterAuth
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error
	return accounts, err
}

func (r *gormTwitterRepository) FindAccountByCelebrity(ctx context.Context, celebrityID string) (*domain.TwitterAuth, error) {
	var account domain.TwitterAuth
	err := r.db.WithContext(ctx).Where("celebrity_id = ?", celebrityID).Order("updated_at DESC").First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *gormTwitterRepository) SaveAccount(ctx context.Context, account *domain.TwitterAuth) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "twitter_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"celebrity_id", "username", "access_token", "refresh_token", "expires_at", "updated_at"}),
	}).Create(account).Error
}

func (r *gormTwitterRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.TwitterAuth{}).Where("id = ?", id).Updates(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_at":    expiresAt,
		"updated_at":    time.Now(),
	}).Error
}

func (r *gormTwitterRepository) UpdateLastSynced(ctx context.Context, id string, lastSyncedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.TwitterAuth{}).Where("id = ?", id).
		Update("last_synced_at", lastSyncedAt).Error
}

func (r *gormTwitterRepository) AppendMessage(ctx context.Context, msg *domain.TwitterMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *gormTwitterRepository) ListMessages(ctx context.Context, opportunityID string) ([]*domain.TwitterMessage, error) {
	var msgs []*domain.TwitterMessage
	err := r.db.WithContext(ctx).Where("opportunity_id = ?", opportunityID).Order("created_at ASC").Find(&msgs).Error
	return msgs, err
}

type gormWritingStyleRepository struct {
	db *gorm.DB
}

func NewGormWritingStyleRepository(db *gorm.DB) WritingStyleRepository {
	return &gormWritingStyleRepository{db: db}
}

func (r *gormWritingStyleRepository) FindByCelebrity(ctx context.Context, celebrityID string) (*domain.WritingStyle, error) {
	var style domain.WritingStyle
	err := r.db.WithContext(ctx).Where("celebrity_id = ?", celebrityID).First(&style).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &style, nil
}

func (r *gormWritingStyleRepository) Save(ctx context.Context, style *domain.WritingStyle) error {
	if style.ID == "" {
		style.ID = uuid.New().String()
	}
	style.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "celebrity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tone", "signature", "examples", "updated_at"}),
	}).Create(style).Error
}
