// pkg/warehouse/writer.go
package warehouse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/faraiwande/gdpr-deletion/pkg/connector"
)

// mergeUpdateColumns is the fixed set of columns a merge may update on match.
// Everything else on an existing user deletion row is immutable.
var mergeUpdateColumns = []string{"deletion_flag", "deletion_date"}

// Writer persists result rows into warehouse tables, either append-only or
// upsert-by-key. Each statement runs under the configured timeout. Failures
// are returned to the caller; the execution gate decides whether a
// persistence failure halts the run.
type Writer struct {
	conn    connector.DatabaseConnector
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewWriter creates a table writer targeting tables under the given
// fully-qualified <catalog>.<schema> prefix.
func NewWriter(conn connector.DatabaseConnector, prefix string, timeout time.Duration) *Writer {
	return &Writer{
		conn:    conn,
		prefix:  prefix,
		timeout: timeout,
		logger:  zap.L().Named("table-writer"),
	}
}

// Append inserts a batch of rows into the named table.
func (w *Writer) Append(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	fullName := w.prefix + "." + table
	stmt, args := buildAppendStatement(fullName, rows)

	w.logger.Info("Appending rows",
		zap.String("table", fullName),
		zap.Int("rows", len(rows)))

	if err := w.exec(ctx, stmt, args); err != nil {
		w.logger.Error("Append failed",
			zap.String("table", fullName),
			zap.Error(err))
		return fmt.Errorf("append to %s failed: %w", fullName, err)
	}

	w.logger.Info("Append complete", zap.String("table", fullName))
	return nil
}

// Merge upserts a batch of rows into the named table keyed on matchColumn.
// Matched rows have only deletion_flag and deletion_date updated; unmatched
// rows are inserted whole.
func (w *Writer) Merge(ctx context.Context, table, matchColumn string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	fullName := w.prefix + "." + table
	stmt, args := buildMergeStatement(fullName, matchColumn, rows)

	w.logger.Info("Merging rows",
		zap.String("table", fullName),
		zap.String("match_column", matchColumn),
		zap.Int("rows", len(rows)))

	if err := w.exec(ctx, stmt, args); err != nil {
		w.logger.Error("Merge failed",
			zap.String("table", fullName),
			zap.Error(err))
		return fmt.Errorf("merge into %s failed: %w", fullName, err)
	}

	w.logger.Info("Merge complete", zap.String("table", fullName))
	return nil
}

// exec runs one statement under the writer's timeout
func (w *Writer) exec(ctx context.Context, stmt string, args []interface{}) error {
	_, err := w.conn.ExecWithTimeout(ctx, stmt, w.timeout, args...)
	return err
}

// rowColumns returns the sorted column names of a row batch
func rowColumns(rows []Row) []string {
	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

// buildAppendStatement constructs a multi-row INSERT with bind placeholders
func buildAppendStatement(table string, rows []Row) (string, []interface{}) {
	columns := rowColumns(rows)

	placeholders := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*len(columns))
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	for i, row := range rows {
		placeholders[i] = rowPlaceholder
		for _, col := range columns {
			args = append(args, row[col])
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))

	return stmt, args
}

// buildMergeStatement constructs a MERGE keyed on matchColumn with a
// VALUES-backed source relation.
func buildMergeStatement(table, matchColumn string, rows []Row) (string, []interface{}) {
	columns := rowColumns(rows)

	placeholders := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*len(columns))
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	for i, row := range rows {
		placeholders[i] = rowPlaceholder
		for _, col := range columns {
			args = append(args, row[col])
		}
	}

	updates := make([]string, 0, len(mergeUpdateColumns))
	for _, col := range mergeUpdateColumns {
		if contains(columns, col) {
			updates = append(updates, fmt.Sprintf("tgt.%s = src.%s", col, col))
		}
	}

	insertValues := make([]string, len(columns))
	for i, col := range columns {
		insertValues[i] = "src." + col
	}

	stmt := fmt.Sprintf(
		"MERGE INTO %s AS tgt USING (SELECT * FROM VALUES %s AS v(%s)) AS src "+
			"ON tgt.%s = src.%s "+
			"WHEN MATCHED THEN UPDATE SET %s "+
			"WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)",
		table,
		strings.Join(placeholders, ", "),
		strings.Join(columns, ", "),
		matchColumn,
		matchColumn,
		strings.Join(updates, ", "),
		strings.Join(columns, ", "),
		strings.Join(insertValues, ", "))

	return stmt, args
}

func contains(s []string, v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
