package repository

import (
	"context"
	"testing"
	"time"

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

func TestSaveToken_Upserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFCMTokenRepository(db)

	mock.ExpectExec(`INSERT INTO "fcm_tokens" .* ON CONFLICT \("token"\) DO UPDATE SET "user_id"="excluded"."user_id"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SaveToken(context.Background(), "u1", "tok", "chrome"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTokensByUserIDs_EmptySkipsQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFCMTokenRepository(db)

	tokens, err := repo.GetTokensByUserIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUsed_OnlyClaimsUnusedCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInviteCodeRepository(db)

	mock.ExpectExec(`UPDATE "invite_codes" SET .* WHERE code = .* AND used_by IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.MarkUsed(context.Background(), "JOIN", "u1", time.Now())
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = .*`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	user, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}
