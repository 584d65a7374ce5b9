package audit

import (
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbovets/taskhub/pkg/observability"
)

func TestRetentionRunOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM audit_logs WHERE timestamp <").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 42))

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	job := NewRetentionJob(db, RetentionPolicy{RetentionDays: 30}, logger)

	purged, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetentionDefaultsApplied(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	job := NewRetentionJob(db, RetentionPolicy{}, logger)

	assert.Equal(t, 90, job.policy.RetentionDays)
	assert.Equal(t, "0 3 * * *", job.policy.Schedule)
}
