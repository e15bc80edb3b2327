package repository

import (
	"context"
	"testing"
	"time"

	"hyperagent/internal/opportunity/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestApplyClassification_IsConditionalOnSentinel(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOpportunityRepository(db)
	result := domain.ClassificationResult{RelevanceScore: 4, Tags: []string{"Podcast"}, Status: domain.StatusApproved}

	mock.ExpectExec(`UPDATE "opportunities" SET .* WHERE .*id = .* AND relevance_score = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "opportunities" SET .* WHERE .*id = .* AND relevance_score = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ApplyClassification(context.Background(), "opp-1", result, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ApplyClassification(context.Background(), "opp-1", result, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "zero rows means someone else classified it")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_RevisionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOpportunityRepository(db)
	opp := &domain.Opportunity{ID: "opp-1", CelebrityID: "c1", Status: domain.StatusApproved, RelevanceScore: 3, Revision: 2}

	mock.ExpectExec(`UPDATE "opportunities" SET .* WHERE .*revision = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), opp, 2)
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)
	assert.Equal(t, 2, opp.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_BumpsRevision(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOpportunityRepository(db)
	opp := &domain.Opportunity{ID: "opp-1", CelebrityID: "c1", Status: domain.StatusApproved, RelevanceScore: 3, Revision: 2}

	mock.ExpectExec(`UPDATE "opportunities" SET .* WHERE .*revision = `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), opp, 2))
	assert.Equal(t, 3, opp.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore_MatchesConditionalSemantics(t *testing.T) {
	store := NewMemoryStore()
	repo := store.Opportunities()
	ctx := context.Background()

	opp := domain.NewInbound("c1", domain.SourceWidget, "fan@example.com", "hi", time.Now())
	require.NoError(t, repo.Create(ctx, opp))

	ok, err := repo.ApplyClassification(ctx, opp.ID, domain.ClassificationResult{RelevanceScore: 2, Status: domain.StatusRejected}, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ApplyClassification(ctx, opp.ID, domain.ClassificationResult{RelevanceScore: 5, Status: domain.StatusApproved}, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RelevanceScore)
	assert.Equal(t, 1, stored.Revision)

	stale := *stored
	stored.Status = domain.StatusOnHold
	require.NoError(t, repo.Update(ctx, stored, 1))
	stale.Status = domain.StatusApproved
	assert.ErrorIs(t, repo.Update(ctx, &stale, 1), domain.ErrRevisionConflict)
}

func TestMemoryStore_ListAndConversation(t *testing.T) {
	store := NewMemoryStore()
	repo := store.Opportunities()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		opp := domain.NewInbound("c1", domain.SourceTwitterDM, "brand", "msg", base.Add(time.Duration(i)*time.Minute))
		opp.ConversationID = "42-7"
		require.NoError(t, repo.Create(ctx, opp))
	}
	require.NoError(t, repo.Create(ctx, domain.NewInbound("c2", domain.SourceWidget, "x", "y", base)))

	page, total, err := repo.List(ctx, domain.ListFilter{CelebrityID: "c1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	latest, err := repo.FindLatestByConversation(ctx, "42-7", domain.SourceTwitterDM)
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Minute), latest.CreatedAt)

	unclassified, err := repo.ListUnclassified(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, unclassified, 4)
}
