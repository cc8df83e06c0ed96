package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB 创建模拟数据库
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		Conn:       db,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return gormDB, mock, cleanup
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(gorm.ErrRecordNotFound))

	retryable := []string{
		pgErrSerializationFailure, pgErrDeadlockDetected,
		pgErrConnectionFailure, pgErrTooManyConnections,
		pgErrQueryCanceled, pgErrCannotConnectNow,
	}
	for _, code := range retryable {
		assert.True(t, isRetryableError(&pgconn.PgError{Code: code}), code)
	}

	fatal := []string{
		pgErrDiskFull, pgErrOutOfMemory,
		pgErrAdminShutdown, pgErrDatabaseDropped,
	}
	for _, code := range fatal {
		assert.False(t, isRetryableError(&pgconn.PgError{Code: code}), code)
	}
}

func TestPagination(t *testing.T) {
	p := &Pagination{}
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, 20, p.Limit())

	p = &Pagination{Page: 3, PageSize: 50}
	assert.Equal(t, 100, p.Offset())
	assert.Equal(t, 50, p.Limit())

	p = &Pagination{Page: 1, PageSize: 1000}
	assert.Equal(t, 100, p.Limit())
}
