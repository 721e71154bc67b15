package postgresql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_CommitMakesWritesVisible(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tx := postgresql.NewTransactor(db)
	users := postgresql.NewUserRepository(db)

	var created user.User
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		created = createTestUser(t, ctx, db, "committed")
		return nil
	})
	require.NoError(t, err)

	got, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "committed", got.Username)
}

func TestTransactor_ErrorRollsBackAndPropagates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tx := postgresql.NewTransactor(db)
	users := postgresql.NewUserRepository(db)

	boom := errors.New("boom")
	var created user.User
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		created = createTestUser(t, ctx, db, "rolledback")
		return boom
	})
	assert.Same(t, boom, err)
	assert.NotErrorIs(t, err, database.ErrTransactionFailed)

	_, err = users.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestTransactor_PanicRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tx := postgresql.NewTransactor(db)
	users := postgresql.NewUserRepository(db)

	var created user.User
	assert.Panics(t, func() {
		_ = tx.WithTransaction(ctx, func(ctx context.Context) error {
			created = createTestUser(t, ctx, db, "panicked")
			panic("unexpected")
		})
	})

	_, err := users.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestTransactor_NestedIsRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tx := postgresql.NewTransactor(db)

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		return tx.WithTransaction(ctx, func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, database.ErrNestedTransaction)
}

func TestTransactor_SnapshotIsReadOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tx := postgresql.NewTransactor(db)

	err := tx.WithSnapshot(ctx, func(ctx context.Context) error {
		_, err := postgresql.NewUserRepository(db).Create(ctx, user.User{
			Username: "snap", PasswordHash: "x", Name: "Snap", Email: "snap@example.com", Role: user.RoleEmployee,
		})
		return err
	})
	assert.Error(t, err)
}
