package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"hyperagent/internal/opportunity/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormOpportunityRepository implements OpportunityRepository using GORM
type gormOpportunityRepository struct {
	db *gorm.DB
}

// NewGormOpportunityRepository creates a new GORM-based OpportunityRepository
func NewGormOpportunityRepository(db *gorm.DB) OpportunityRepository {
	return &gormOpportunityRepository{db: db}
}

func (r *gormOpportunityRepository) Create(ctx context.Context, opp *domain.Opportunity) error {
	if opp.ID == "" {
		opp.ID = uuid.New().String()
	}
	if opp.CreatedAt.IsZero() {
		opp.CreatedAt = time.Now()
	}
	opp.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(opp).Error
}

func (r *gormOpportunityRepository) FindByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&opp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &opp, nil
}

func (r *gormOpportunityRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Opportunity, error) {
	var opps []*domain.Opportunity
	if len(ids) == 0 {
		return opps, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&opps).Error
	return opps, err
}

func (r *gormOpportunityRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Opportunity, int64, error) {
	var opps []*domain.Opportunity
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Opportunity{}).Where("celebrity_id = ?", filter.CelebrityID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.GoalID != nil {
		query = query.Where("goal_id = ?", *filter.GoalID)
	}
	if filter.NeedsDiscussion != nil {
		query = query.Where("needs_discussion = ?", *filter.NeedsDiscussion)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&opps).Error
	return opps, total, err
}

func (r *gormOpportunityRepository) ListUnclassified(ctx context.Context, limit int) ([]*domain.Opportunity, error) {
	var opps []*domain.Opportunity
	err := r.db.WithContext(ctx).
		Where("relevance_score = ?", domain.UnclassifiedScore).
		Order("created_at ASC").
		Limit(limit).
		Find(&opps).Error
	return opps, err
}

func (r *gormOpportunityRepository) ListOpen(ctx context.Context, celebrityID string) ([]*domain.Opportunity, error) {
	var opps []*domain.Opportunity
	err := r.db.WithContext(ctx).
		Where("celebrity_id = ? AND status IN ?", celebrityID, []domain.Status{domain.StatusPending, domain.StatusApproved}).
		Order("created_at DESC").
		Find(&opps).Error
	return opps, err
}

func (r *gormOpportunityRepository) FindLatestByConversation(ctx context.Context, conversationID string, source domain.Source) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND source = ?", conversationID, source).
		Order("created_at DESC").
		First(&opp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &opp, nil
}

func (r *gormOpportunityRepository) ApplyClassification(ctx context.Context, id string, result domain.ClassificationResult, classifiedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Opportunity{}).
		Where("id = ? AND relevance_score = ?", id, domain.UnclassifiedScore).
		Updates(map[string]interface{}{
			"relevance_score":  result.RelevanceScore,
			"tags":             domain.NormalizeTags(result.Tags),
			"status":           result.Status,
			"needs_discussion": result.NeedsDiscussion,
			"goal_id":          result.GoalID,
			"explanation":      result.Explanation,
			"classified_at":    classifiedAt,
			"revision":         gorm.Expr("revision + 1"),
			"updated_at":       classifiedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormOpportunityRepository) Update(ctx context.Context, opp *domain.Opportunity, expectedRevision int) error {
	opp.Revision = expectedRevision + 1
	opp.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).Model(opp).
		Where("revision = ?", expectedRevision).
		Select("*").
		Omit("id", "created_at").
		Updates(opp)
	if res.Error != nil {
		opp.Revision = expectedRevision
		return res.Error
	}
	if res.RowsAffected == 0 {
		opp.Revision = expectedRevision
		return domain.ErrRevisionConflict
	}
	return nil
}

// gormGoalRepository implements GoalRepository using GORM
type gormGoalRepository struct {
	db *gorm.DB
}

func NewGormGoalRepository(db *gorm.DB) GoalRepository {
	return &gormGoalRepository{db: db}
}

func (r *gormGoalRepository) Create(ctx context.Context, goal *domain.Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	goal.CreatedAt = time.Now()
	goal.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(goal).Error
}

func (r *gormGoalRepository) FindByID(ctx context.Context, id string) (*domain.Goal, error) {
	var goal domain.Goal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&goal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &goal, nil
}

func (r *gormGoalRepository) ListByCelebrity(ctx context.Context, celebrityID string) ([]*domain.Goal, error) {
	var goals []*domain.Goal
	err := r.db.WithContext(ctx).
		Where("celebrity_id = ?", celebrityID).
		Order("priority DESC, created_at ASC").
		Find(&goals).Error
	return goals, err
}

func (r *gormGoalRepository) Update(ctx context.Context, goal *domain.Goal) error {
	goal.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(goal).Error
}

func (r *gormGoalRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Goal{}, "id = ?", id).Error
}

// gormCelebrityRepository implements CelebrityRepository using GORM
type gormCelebrityRepository struct {
	db *gorm.DB
}

func NewGormCelebrityRepository(db *gorm.DB) CelebrityRepository {
	return &gormCelebrityRepository{db: db}
}

func (r *gormCelebrityRepository) Create(ctx context.Context, celebrity *domain.Celebrity) error {
	if celebrity.ID == "" {
		celebrity.ID = uuid.New().String()
	}
	celebrity.InboundEmail = strings.ToLower(celebrity.InboundEmail)
	celebrity.CreatedAt = time.Now()
	celebrity.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(celebrity).Error
}

func (r *gormCelebrityRepository) FindByID(ctx context.Context, id string) (*domain.Celebrity, error) {
	var celebrity domain.Celebrity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&celebrity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &celebrity, nil
}

func (r *gormCelebrityRepository) FindByInboundEmail(ctx context.Context, address string) (*domain.Celebrity, error) {
	var celebrity domain.Celebrity
	err := r.db.WithContext(ctx).Where("inbound_email = ?", strings.ToLower(address)).First(&celebrity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &celebrity, nil
}

// gormCommentRepository implements CommentRepository using GORM
type gormCommentRepository struct {
	db *gorm.DB
}

func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &gormCommentRepository{db: db}
}

func (r *gormCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	comment.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *gormCommentRepository) ListByOpportunity(ctx context.Context, opportunityID string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := r.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}
