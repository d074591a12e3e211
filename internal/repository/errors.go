package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrForeignKey is returned when a write references a missing row.
	ErrForeignKey = errors.New("repository: foreign key violation")
	// ErrRetryable is returned for serialization failures and deadlocks.
	ErrRetryable = errors.New("repository: transaction conflict")
	// ErrOrganizationInUse is returned when deleting an organization that
	// still has assignments.
	ErrOrganizationInUse = errors.New("repository: organization has assignments")
	// ErrUnavailable is returned when the database cannot be reached in time.
	ErrUnavailable = apierrors.NewUnavailable("Service temporarily unavailable")
)

// mapError maps driver errors to the repository sentinels. Errors it does not
// recognise, including gorm.ErrRecordNotFound, are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s: %w", ErrDuplicate, pgErr.ConstraintName, err)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s: %w", ErrForeignKey, pgErr.ConstraintName, err)
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("%w: %w", ErrRetryable, err)
	case pgerrcode.QueryCanceled,
		pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection,
		pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}
