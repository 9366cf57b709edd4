// Package loader reads bill batches and imports bank operation exports into
// the ledger store.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/CPatchane/cozy-konnector-libs/internal/models"
	"github.com/CPatchane/cozy-konnector-libs/internal/store"
	"github.com/CPatchane/cozy-konnector-libs/pkg/errors"
	"github.com/CPatchane/cozy-konnector-libs/pkg/logger"
)

// operationRecord is the CSV row shape of a bank operations export.
type operationRecord struct {
	ID     string `csv:"id"`
	Date   string `csv:"date"`
	Label  string `csv:"label"`
	Amount string `csv:"amount"`
}

// LoadBills reads a JSON array of bills from a file and validates each one.
func LoadBills(path string) ([]*models.Bill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ImportError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.ImportError(errors.CodeInvalidFormat, path, err)
	}

	var bills []*models.Bill
	if err := json.Unmarshal(data, &bills); err != nil {
		return nil, errors.ImportError(errors.CodeInvalidFormat, path, err)
	}

	for i, bill := range bills {
		if err := bill.Validate(); err != nil {
			return nil, errors.ImportError(errors.CodeInvalidData, path, err).
				WithContext("entry", i)
		}
	}

	return bills, nil
}

// ImportOperationsCSV reads a bank operations CSV export and inserts every
// row into the store. Rows without an ID get a generated one. Returns the
// number of imported operations.
func ImportOperationsCSV(ctx context.Context, path string, st *store.SQLiteStore) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.ImportError(errors.CodeFileNotFound, path, err)
		}
		return 0, errors.ImportError(errors.CodeInvalidFormat, path, err)
	}
	defer file.Close()

	var records []*operationRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return 0, errors.ImportError(errors.CodeInvalidFormat, path, err)
	}

	log := logger.WithComponent("loader")

	imported := 0
	for i, record := range records {
		op, err := recordToOperation(record)
		if err != nil {
			return imported, errors.ImportError(errors.CodeInvalidData, path, err).
				WithContext("row", i+1)
		}

		id, err := st.InsertOperation(ctx, op)
		if err != nil {
			return imported, err
		}

		log.WithFields(logger.Fields{
			"operation_id": id,
			"label":        op.Label,
		}).Debug("operation imported")
		imported++
	}

	return imported, nil
}

func recordToOperation(record *operationRecord) (*models.Operation, error) {
	amount, err := models.ParseAmount(record.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	date, err := models.ParseDate(record.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	return &models.Operation{
		ID:     record.ID,
		Amount: amount,
		Label:  record.Label,
		Date:   date,
	}, nil
}
