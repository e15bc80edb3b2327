package repository

import (
	"context"
	"testing"
	"time"

	"hyperagent/internal/messaging/domain"

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
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestThreadCreate_IgnoresDuplicateOpportunity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormThreadRepository(db)

	mock.ExpectExec(`INSERT INTO "email_threads" .* ON CONFLICT \("opportunity_id"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &domain.EmailThread{OpportunityID: "o1", Subject: "Re: hi"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThreadAppendMessage_BumpsLastMessageAt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormThreadRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "email_messages"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE "email_threads" SET .*"last_message_at"=.* WHERE id = .* AND last_message_at < `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AppendMessage(context.Background(), &domain.EmailMessage{
		ThreadID:  "t1",
		Direction: domain.DirectionInbound,
		Body:      "hello",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAccount_UpsertsOnTwitterUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormTwitterRepository(db)

	mock.ExpectExec(`INSERT INTO "twitter_auth" .* ON CONFLICT \("twitter_user_id"\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.SaveAccount(context.Background(), &domain.TwitterAuth{
		CelebrityID:   "c1",
		TwitterUserID: "42",
		AccessToken:   "at",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryTwitter_SaveAccountKeepsSyncCursor(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	repo := store.Twitter()

	account := &domain.TwitterAuth{CelebrityID: "c1", TwitterUserID: "42", AccessToken: "a1"}
	require.NoError(t, repo.SaveAccount(ctx, account))
	synced := time.Now().Add(-time.Hour)
	require.NoError(t, repo.UpdateLastSynced(ctx, account.ID, synced))

	require.NoError(t, repo.SaveAccount(ctx, &domain.TwitterAuth{CelebrityID: "c1", TwitterUserID: "42", AccessToken: "a2"}))

	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "a2", accounts[0].AccessToken)
	require.NotNil(t, accounts[0].LastSyncedAt)
	assert.True(t, accounts[0].LastSyncedAt.Equal(synced))
}

func TestMemoryThreads_MessagesOrdered(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	threads := store.Threads()

	thread := &domain.EmailThread{OpportunityID: "o1"}
	require.NoError(t, threads.Create(ctx, thread))
	now := time.Now()
	require.NoError(t, threads.AppendMessage(ctx, &domain.EmailMessage{ThreadID: thread.ID, Body: "second", CreatedAt: now}))
	require.NoError(t, threads.AppendMessage(ctx, &domain.EmailMessage{ThreadID: thread.ID, Body: "first", CreatedAt: now.Add(-time.Minute)}))

	msgs, err := threads.ListMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Body)

	stored, err := threads.FindByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastMessageAt.Equal(now) || stored.LastMessageAt.After(now))
}
