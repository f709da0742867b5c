package warehouse

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConnector backs the client and writer with a mocked database while
// recording how they use the connector surface.
type stubConnector struct {
	db          *sql.DB
	execCount   int
	lastTimeout time.Duration
}

func (s *stubConnector) DB() *sql.DB { return s.db }

func (s *stubConnector) Validate() error { return nil }

func (s *stubConnector) Close() error { return s.db.Close() }

func (s *stubConnector) ExecWithTimeout(ctx context.Context, query string, timeout time.Duration, args ...interface{}) (sql.Result, error) {
	s.execCount++
	s.lastTimeout = timeout
	return s.db.ExecContext(ctx, query, args...)
}

func newStubConnector(t *testing.T) (*stubConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &stubConnector{db: db}, mock
}

func TestRunQuery_CollectsRows(t *testing.T) {
	conn, mock := newStubConnector(t)

	query := "SELECT singl_profl_id FROM t"
	mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(
		sqlmock.NewRows([]string{"singl_profl_id"}).
			AddRow("spid-1").
			AddRow("spid-2"))

	c := NewClient(conn, 1000, time.Minute)
	rs, err := c.RunQuery(context.Background(), query)

	require.NoError(t, err)
	assert.Equal(t, []string{"spid-1", "spid-2"}, rs.Strings("singl_profl_id"))
}

func TestRunQuery_EmptyResultIsNotAnError(t *testing.T) {
	conn, mock := newStubConnector(t)

	query := "SELECT singl_profl_id FROM t"
	mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(
		sqlmock.NewRows([]string{"singl_profl_id"}))

	c := NewClient(conn, 1000, time.Minute)
	rs, err := c.RunQuery(context.Background(), query)

	// Zero rows and "could not run" stay distinguishable.
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.True(t, rs.Empty())
}

func TestRunQuery_FailureReturnsNoResultSet(t *testing.T) {
	conn, mock := newStubConnector(t)

	query := "SELECT singl_profl_id FROM t"
	mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnError(sql.ErrConnDone)

	c := NewClient(conn, 1000, time.Minute)
	rs, err := c.RunQuery(context.Background(), query)

	require.Error(t, err)
	assert.Nil(t, rs)
}
