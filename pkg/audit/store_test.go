package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "timestamp", "event_type", "status",
		"user_id", "organization_id",
		"resource_type", "resource_id",
		"ip_address", "user_agent", "request_id",
		"message", "error_message", "metadata",
	}).AddRow(
		int64(1), time.Now(), "data.task_create", "success",
		"u1", "org-eng",
		"task", "t1",
		"", "", "req-1",
		"task created", "", []byte(`{"k":"v"}`),
	)
}

func TestStoreSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE user_id = \\$1 ORDER BY timestamp DESC LIMIT \\$2").
		WithArgs("u1", 100).
		WillReturnRows(auditRows())

	store := NewStore(db)
	events, err := store.Search(context.Background(), SearchFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeTaskCreate, events[0].EventType)
	assert.Equal(t, "v", events[0].Metadata["k"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSearchSubtreeScope(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE organization_id = ANY\\(\\$1\\) ORDER BY timestamp DESC LIMIT \\$2 OFFSET \\$3").
		WithArgs(pq.Array([]string{"org-eng", "org-fe"}), 10, 20).
		WillReturnRows(auditRows())

	store := NewStore(db)
	events, err := store.Search(context.Background(), SearchFilter{
		OrganizationIDs: []string{"org-eng", "org-fe"},
		Limit:           10,
		Offset:          20,
	})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSearchEventTypes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM audit_logs WHERE event_type IN \\(\\$1, \\$2\\)").
		WithArgs("auth.login", "auth.login_failed", 100).
		WillReturnRows(auditRows())

	store := NewStore(db)
	_, err = store.Search(context.Background(), SearchFilter{
		EventTypes: []EventType{EventTypeAuthLogin, EventTypeAuthLoginFailed},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	status := EventStatusDenied
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM audit_logs WHERE status = \\$1").
		WithArgs("denied").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	store := NewStore(db)
	count, err := store.Count(context.Background(), SearchFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
