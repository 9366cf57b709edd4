package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/CPatchane/cozy-konnector-libs/internal/models"
	"github.com/CPatchane/cozy-konnector-libs/pkg/errors"
	"github.com/CPatchane/cozy-konnector-libs/pkg/logger"
)

const operationsSchema = `
CREATE TABLE IF NOT EXISTS operations (
	id             TEXT PRIMARY KEY,
	amount         TEXT NOT NULL,
	label          TEXT NOT NULL DEFAULT '',
	date           TEXT NOT NULL,
	bills          TEXT NOT NULL DEFAULT '[]',
	reimbursements TEXT NOT NULL DEFAULT '[]'
)`

// updatableColumns whitelists the attributes UpdateAttributes accepts.
var updatableColumns = map[string]bool{
	"bills":          true,
	"reimbursements": true,
	"label":          true,
}

// SQLiteStore implements Store on a local SQLite database. Operation dates
// are stored as ISO-8601 UTC strings so indexed range scans compare
// lexicographically.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// OpenSQLiteStore opens (creating if needed) a SQLite-backed ledger store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStoreUnopened, "open", err).
			WithContext("path", path)
	}

	if _, err := db.Exec(operationsSchema); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeStoreUnopened, "schema setup", err).
			WithContext("path", path)
	}

	return &SQLiteStore{
		db:  db,
		log: logger.WithComponent("store"),
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DefineIndex declares an index on the operations collection. The call is
// idempotent: re-declaring an existing index is a no-op.
func (s *SQLiteStore) DefineIndex(ctx context.Context, doctype string, fields []string) (*Index, error) {
	if doctype != models.DoctypeOperations {
		return nil, errors.StorageError(errors.CodeIndexCreation, "index declaration", nil).
			WithContext("doctype", doctype)
	}

	for _, field := range fields {
		if !columnExists(field) {
			return nil, errors.StorageError(errors.CodeIndexCreation, "index declaration", nil).
				WithContext("field", field)
		}
	}

	name := indexName(doctype, fields)
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON operations(%s)",
		name, strings.Join(fields, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return nil, errors.StorageError(errors.CodeIndexCreation, "index declaration", err).
			WithContext("index", name)
	}

	s.log.WithField("index", name).Debug("index declared")

	return &Index{Doctype: doctype, Fields: fields, Name: name}, nil
}

// Query returns operations whose date lies strictly inside the selector's
// range, in store order.
func (s *SQLiteStore) Query(ctx context.Context, index *Index, selector Selector) ([]*models.Operation, error) {
	start := ISOTimestamp(selector.Date.GreaterThan)
	end := ISOTimestamp(selector.Date.LessThan)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, label, date, bills, reimbursements
		 FROM operations WHERE date > ? AND date < ? ORDER BY date`,
		start, end)
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "operation range query", err)
	}
	defer rows.Close()

	var operations []*models.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, errors.StorageError(errors.CodeQueryFailed, "operation scan", err)
		}
		operations = append(operations, op)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "operation range query", err)
	}

	s.log.WithFields(logger.Fields{
		"start": start,
		"end":   end,
		"count": len(operations),
	}).Debug("range query completed")

	return operations, nil
}

// UpdateAttributes merges the given attributes into the stored operation.
// Only whitelisted attributes are accepted; collection-valued attributes
// replace the stored collection in full (last-writer-wins).
func (s *SQLiteStore) UpdateAttributes(ctx context.Context, doctype, id string, attrs map[string]interface{}) error {
	if doctype != models.DoctypeOperations {
		return errors.StorageError(errors.CodeUpdateFailed, "attribute update", nil).
			WithContext("doctype", doctype)
	}
	if len(attrs) == 0 {
		return nil
	}

	setClause := ""
	args := make([]interface{}, 0, len(attrs)+1)
	for column, value := range attrs {
		if !updatableColumns[column] {
			return errors.StorageError(errors.CodeUpdateFailed, "attribute update", nil).
				WithContext("attribute", column)
		}

		serialized, err := serializeAttribute(column, value)
		if err != nil {
			return errors.StorageError(errors.CodeUpdateFailed, "attribute update", err).
				WithContext("attribute", column)
		}

		if setClause != "" {
			setClause += ", "
		}
		setClause += column + " = ?"
		args = append(args, serialized)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE operations SET "+setClause+" WHERE id = ?", args...)
	if err != nil {
		return errors.StorageError(errors.CodeUpdateFailed, "attribute update", err).
			WithContext("operation_id", id)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.StorageError(errors.CodeUpdateFailed, "attribute update", err)
	}
	if affected == 0 {
		return errors.StorageError(errors.CodeRecordNotFound, "attribute update", nil).
			WithContext("operation_id", id)
	}

	return nil
}

// InsertOperation stores a new operation, assigning a generated ID when the
// operation has none. Returns the stored ID.
func (s *SQLiteStore) InsertOperation(ctx context.Context, op *models.Operation) (string, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if err := op.Validate(); err != nil {
		return "", errors.StorageError(errors.CodeUpdateFailed, "operation insert", err)
	}

	bills, err := json.Marshal(billsOrEmpty(op.Bills))
	if err != nil {
		return "", errors.StorageError(errors.CodeUpdateFailed, "operation insert", err)
	}
	reimbursements, err := json.Marshal(reimbursementsOrEmpty(op.Reimbursements))
	if err != nil {
		return "", errors.StorageError(errors.CodeUpdateFailed, "operation insert", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO operations (id, amount, label, date, bills, reimbursements)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		op.ID, op.Amount.String(), op.Label, ISOTimestamp(op.Date),
		string(bills), string(reimbursements))
	if err != nil {
		return "", errors.StorageError(errors.CodeUpdateFailed, "operation insert", err).
			WithContext("operation_id", op.ID)
	}

	return op.ID, nil
}

// GetOperation fetches a single operation by ID.
func (s *SQLiteStore) GetOperation(ctx context.Context, id string) (*models.Operation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, amount, label, date, bills, reimbursements
		 FROM operations WHERE id = ?`, id)

	op, err := scanOperation(row)
	if err == sql.ErrNoRows {
		return nil, errors.StorageError(errors.CodeRecordNotFound, "operation lookup", nil).
			WithContext("operation_id", id)
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "operation lookup", err)
	}

	return op, nil
}

// CountOperations returns the number of stored operations.
func (s *SQLiteStore) CountOperations(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM operations").Scan(&count)
	if err != nil {
		return 0, errors.StorageError(errors.CodeQueryFailed, "operation count", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row rowScanner) (*models.Operation, error) {
	var (
		op                   models.Operation
		amount, date         string
		bills, reimbursement string
	)

	if err := row.Scan(&op.ID, &amount, &op.Label, &date, &bills, &reimbursement); err != nil {
		return nil, err
	}

	var err error
	if op.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount '%s': %w", amount, err)
	}
	if op.Date, err = models.ParseDate(date); err != nil {
		return nil, fmt.Errorf("invalid stored date '%s': %w", date, err)
	}
	if err = json.Unmarshal([]byte(bills), &op.Bills); err != nil {
		return nil, fmt.Errorf("invalid stored bills: %w", err)
	}
	if err = json.Unmarshal([]byte(reimbursement), &op.Reimbursements); err != nil {
		return nil, fmt.Errorf("invalid stored reimbursements: %w", err)
	}

	return &op, nil
}

func serializeAttribute(column string, value interface{}) (string, error) {
	switch column {
	case "bills", "reimbursements":
		data, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("attribute %s must be a string, got %T", column, value)
		}
		return s, nil
	}
}

func columnExists(field string) bool {
	switch field {
	case "id", "amount", "label", "date", "bills", "reimbursements":
		return true
	}
	return false
}

func billsOrEmpty(bills []string) []string {
	if bills == nil {
		return []string{}
	}
	return bills
}

func reimbursementsOrEmpty(r []models.Reimbursement) []models.Reimbursement {
	if r == nil {
		return []models.Reimbursement{}
	}
	return r
}
