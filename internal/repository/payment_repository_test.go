package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-fee-api/internal/models"
)

func newPaymentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCreateAndSettleCommitsTogether(t *testing.T) {
	db, mock, closeFn := newPaymentRepoMock(t)
	defer closeFn()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_allocations SET status =")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	payment := &models.Payment{
		FamilyID: "fam-1",
		Amount:   decimal.RequireFromString("5500"),
		Method:   models.PaymentTransfer,
	}
	require.NoError(t, repo.CreateAndSettle(context.Background(), payment, []string{"alloc-1", "alloc-2"}))
	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.PaidAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndSettleRollsBackOnSettleFailure(t *testing.T) {
	db, mock, closeFn := newPaymentRepoMock(t)
	defer closeFn()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_allocations SET status =")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	payment := &models.Payment{
		FamilyID: "fam-1",
		Amount:   decimal.RequireFromString("5000"),
		Method:   models.PaymentCash,
	}
	err := repo.CreateAndSettle(context.Background(), payment, []string{"alloc-1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndSettleWithoutAllocations(t *testing.T) {
	db, mock, closeFn := newPaymentRepoMock(t)
	defer closeFn()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payment := &models.Payment{
		FamilyID: "fam-1",
		Amount:   decimal.RequireFromString("100"),
		Method:   models.PaymentCash,
	}
	require.NoError(t, repo.CreateAndSettle(context.Background(), payment, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
