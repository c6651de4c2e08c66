package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growthinsights/trialscope/internal/config"
)

// newMockClient returns a Client whose opener hands out the given databases
// in order, counting how many times a connection was established.
func newMockClient(t *testing.T, dbs ...*sql.DB) (*Client, *int) {
	t.Helper()
	opens := 0
	c := NewClient(config.SnowflakeConfig{})
	c.open = func(context.Context) (*sql.DB, error) {
		require.Less(t, opens, len(dbs), "unexpected extra connection attempt")
		db := dbs[opens]
		opens++
		return db, nil
	}
	return c, &opens
}

func TestQuery_MapsRowsByColumnName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client, _ := newMockClient(t, db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ORG_ID, TRIAL_SUMMARY FROM T WHERE ORG_ID = ?")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"ORG_ID", "TRIAL_SUMMARY"}).
			AddRow(int64(42), []byte("found value in dashboards")))

	rows, err := client.Query(context.Background(), "SELECT ORG_ID, TRIAL_SUMMARY FROM T WHERE ORG_ID = ?", int64(42))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0]["ORG_ID"])
	// Byte slices come back as strings, not base64.
	assert.Equal(t, "found value in dashboards", rows[0]["TRIAL_SUMMARY"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_ZeroRowsIsEmptySliceNotNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client, _ := newMockClient(t, db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM dashboards")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rows, err := client.Query(context.Background(), "SELECT id FROM dashboards")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestQuery_ReusesCachedConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client, opens := newMockClient(t, db)

	for range 3 {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		_, err := client.Query(context.Background(), "SELECT 1")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, *opens)
}

func TestQuery_AuthErrorInvalidatesAndReconnects(t *testing.T) {
	db1, mock1, err := sqlmock.New()
	require.NoError(t, err)
	db2, mock2, err := sqlmock.New()
	require.NoError(t, err)
	client, opens := newMockClient(t, db1, db2)

	mock1.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnError(&gosnowflake.SnowflakeError{Number: 390144, Message: "session token expired"})
	mock1.ExpectClose()

	_, err = client.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, IsAuthError(errors.Unwrap(err)))

	// Next query re-authenticates on a fresh connection.
	mock2.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	rows, err := client.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, *opens)
}

func TestQuery_NonAuthErrorKeepsConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client, opens := newMockClient(t, db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT broken")).
		WillReturnError(&gosnowflake.SnowflakeError{Number: 1003, Message: "SQL compilation error"})

	_, err = client.Query(context.Background(), "SELECT broken")
	require.Error(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	_, err = client.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1, *opens)
}

func TestInvalidate_DropsCachedConnection(t *testing.T) {
	db1, mock1, err := sqlmock.New()
	require.NoError(t, err)
	db2, mock2, err := sqlmock.New()
	require.NoError(t, err)
	client, opens := newMockClient(t, db1, db2)

	mock1.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	_, err = client.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)

	mock1.ExpectClose()
	client.Invalidate()

	mock2.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	_, err = client.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 2, *opens)
}

func TestIsAuthError(t *testing.T) {
	assert.False(t, IsAuthError(nil))
	assert.False(t, IsAuthError(errors.New("SQL compilation error")))
	assert.True(t, IsAuthError(errors.New("Authentication token has expired")))
	assert.True(t, IsAuthError(&gosnowflake.SnowflakeError{Number: 390144}))
	assert.False(t, IsAuthError(&gosnowflake.SnowflakeError{Number: 1003, Message: "bad sql"}))
}
