package repositories

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cargohitch/server/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@x.com", NormalizeEmail("  USER@X.Com "))
	assert.Equal(t, "user@x.com", NormalizeEmail("user@x.com"))
}

func TestUserFindByEmailNormalizesLookup(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WithArgs("user@x.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_verified"}).
			AddRow(id.String(), "user@x.com", true))

	user, err := repo.FindByEmail("  USER@X.Com ")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.True(t, user.IsVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSearchRestrictedToVerified(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	// LIMIT is bound as the trailing argument.
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE is_verified = \$1`).
		WithArgs(true, "%ana%", "%ana%", "%ana%", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	_, err := repo.Search("ana", 10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripSearchOnlyActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTripRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "trips" WHERE status = \$1 .*ORDER BY created_at DESC`).
		WithArgs(models.TripStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))

	_, err := repo.Search(TripSearchFilter{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripSearchAppliesAllFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTripRepository(db)

	date := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	maxRate := 10.0
	minSpace := 5.0
	viewer := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "trips" WHERE status = \$1`).
		WithArgs(models.TripStatusActive, "%US%", "%CA%", date, maxRate, minSpace, viewer.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Search(TripSearchFilter{
		CountryFrom:   "US",
		CountryTo:     "CA",
		Date:          &date,
		MaxRate:       &maxRate,
		MinSpace:      &minSpace,
		ExcludeUserID: &viewer,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripSoftDeleteUpdatesStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTripRepository(db)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "trips" SET`).
		WithArgs(models.TripStatusDeleted, sqlmock.AnyArg(), id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SoftDelete(id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkConversationReadReturnsAffectedCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	recipient := uuid.New()
	convID := "a_b"
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "messages" SET`).
		WithArgs(true, convID, recipient.String(), false).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.MarkConversationRead(convID, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkVerifiedReportsMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).
		WithArgs(true, sqlmock.AnyArg(), "ghost@x.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.MarkVerified("ghost@x.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
