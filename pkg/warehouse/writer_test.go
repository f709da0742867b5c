package warehouse

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAppendStatement(t *testing.T) {
	rows := []Row{
		{"singl_profl_id": "a", "execution_date": "2024-03-01"},
		{"singl_profl_id": "b", "execution_date": "2024-03-01"},
	}

	stmt, args := buildAppendStatement("custanwo.customer_transformation.gdpr_profile_export_snapshot", rows)

	assert.Equal(t,
		"INSERT INTO custanwo.customer_transformation.gdpr_profile_export_snapshot "+
			"(execution_date, singl_profl_id) VALUES (?, ?), (?, ?)",
		stmt)
	// Columns are sorted, so execution_date binds before singl_profl_id.
	assert.Equal(t, []interface{}{"2024-03-01", "a", "2024-03-01", "b"}, args)
}

func TestBuildMergeStatement(t *testing.T) {
	rows := []Row{
		{"singl_profl_id": "a", "deletion_flag": true, "deletion_date": "2024-03-01"},
	}

	stmt, args := buildMergeStatement("custanwo.customer_transformation.gdpr_user_deletions", "singl_profl_id", rows)

	assert.Contains(t, stmt, "MERGE INTO custanwo.customer_transformation.gdpr_user_deletions AS tgt")
	assert.Contains(t, stmt, "ON tgt.singl_profl_id = src.singl_profl_id")
	assert.Contains(t, stmt, "WHEN MATCHED THEN UPDATE SET tgt.deletion_flag = src.deletion_flag, tgt.deletion_date = src.deletion_date")
	assert.Contains(t, stmt, "WHEN NOT MATCHED THEN INSERT (deletion_date, deletion_flag, singl_profl_id)")
	require.Len(t, args, 3)
	assert.Equal(t, []interface{}{"2024-03-01", true, "a"}, args)
}

func TestBuildMergeStatement_OnlyFlagColumnsUpdated(t *testing.T) {
	rows := []Row{
		{"singl_profl_id": "a", "wallet_id": "w1", "deletion_flag": true, "deletion_date": "2024-03-01"},
	}

	stmt, _ := buildMergeStatement("t.s.gdpr_user_deletions", "singl_profl_id", rows)

	// Matched rows never have their identity columns rewritten.
	assert.NotContains(t, stmt, "tgt.wallet_id = src.wallet_id")
	assert.NotContains(t, stmt, "tgt.singl_profl_id = src.singl_profl_id,")
}

func TestAppend_ExecutesThroughConnectorTimeout(t *testing.T) {
	conn, mock := newStubConnector(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO custanwo.customer_transformation.gdpr_user_deletions (deletion_flag, singl_profl_id) VALUES (?, ?)")).
		WithArgs(true, "a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := NewWriter(conn, "custanwo.customer_transformation", time.Minute)
	err := w.Append(context.Background(), "gdpr_user_deletions",
		[]Row{{"singl_profl_id": "a", "deletion_flag": true}})

	require.NoError(t, err)
	assert.Equal(t, 1, conn.execCount)
	assert.Equal(t, time.Minute, conn.lastTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_EmptyBatchIsNoOp(t *testing.T) {
	conn, _ := newStubConnector(t)

	w := NewWriter(conn, "custanwo.customer_transformation", time.Minute)
	require.NoError(t, w.Append(context.Background(), "gdpr_user_deletions", nil))
	assert.Equal(t, 0, conn.execCount)
}

func TestRowString(t *testing.T) {
	row := Row{
		"s":   "text",
		"b":   []byte("bytes"),
		"n":   nil,
		"num": int64(5),
	}

	assert.Equal(t, "text", row.String("s"))
	assert.Equal(t, "bytes", row.String("b"))
	assert.Equal(t, "", row.String("n"))
	assert.Equal(t, "", row.String("missing"))
	assert.Equal(t, "5", row.String("num"))
}

func TestResultSetStrings(t *testing.T) {
	rs := &ResultSet{Rows: []Row{
		{"singl_profl_id": "a"},
		{"singl_profl_id": nil},
		{"singl_profl_id": "b"},
	}}

	assert.Equal(t, []string{"a", "b"}, rs.Strings("singl_profl_id"))
	assert.False(t, rs.Empty())
	assert.Equal(t, 3, rs.Len())

	empty := &ResultSet{}
	assert.True(t, empty.Empty())
}
