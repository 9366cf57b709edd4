package linker

import (
	"context"

	"github.com/CPatchane/cozy-konnector-libs/internal/models"
	"github.com/CPatchane/cozy-konnector-libs/internal/store"
	"github.com/CPatchane/cozy-konnector-libs/pkg/errors"
	"github.com/CPatchane/cozy-konnector-libs/pkg/logger"
)

// UpdateKind identifies which kind of link update was applied.
type UpdateKind string

const (
	// UpdateBillLinked records that a bill reference was appended to the
	// debited operation.
	UpdateBillLinked UpdateKind = "bill_linked"

	// UpdateReimbursementLinked records that a reimbursement record was
	// appended to the reimbursed operation.
	UpdateReimbursementLinked UpdateKind = "reimbursement_linked"
)

// BillLinkResult is the outcome of processing a single bill. A bill may
// produce zero, one or two applied updates; already-linked operations match
// without producing an update.
type BillLinkResult struct {
	BillID                string       `json:"bill_id"`
	DebitOperationID      string       `json:"debit_operation_id,omitempty"`
	ReimbursedOperationID string       `json:"reimbursed_operation_id,omitempty"`
	AppliedUpdates        []UpdateKind `json:"applied_updates,omitempty"`
}

// Result aggregates the per-bill outcomes of a linking run.
type Result struct {
	Bills                []BillLinkResult `json:"bills"`
	BillsLinked          int              `json:"bills_linked"`
	ReimbursementsLinked int              `json:"reimbursements_linked"`
}

// Service links bills to banking operations through a storage collaborator.
type Service struct {
	store     store.Store
	options   *Options
	doctype   string
	log       logger.Logger
	dateIndex *store.Index
}

// NewService creates a linking service for the given store and options.
// doctype is the target operations collection; empty selects the default.
// Invalid options fail here, before any bill is processed.
func NewService(st store.Store, doctype string, options *Options) (*Service, error) {
	if options == nil {
		options = DefaultOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if doctype == "" {
		doctype = models.DoctypeOperations
	}

	return &Service{
		store:   st,
		options: options,
		doctype: doctype,
		log:     logger.WithComponent("linker"),
	}, nil
}

// LinkBills processes the bills in input order, strictly sequentially: each
// bill's fetch, matches and updates complete before the next bill begins.
// A storage failure aborts the run; the returned result covers the bills
// fully processed before the failure. Re-running the same batch is safe:
// every update is idempotent.
func (s *Service) LinkBills(ctx context.Context, bills []*models.Bill) (*Result, error) {
	index, err := s.store.DefineIndex(ctx, s.doctype, []string{"date"})
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryStorage,
			errors.CodeIndexCreation, "failed to declare the operation date index")
	}
	s.dateIndex = index

	result := &Result{}
	for _, bill := range bills {
		billResult, err := s.linkBill(ctx, bill)
		if err != nil {
			return result, err
		}

		result.Bills = append(result.Bills, billResult)
		for _, kind := range billResult.AppliedUpdates {
			switch kind {
			case UpdateBillLinked:
				result.BillsLinked++
			case UpdateReimbursementLinked:
				result.ReimbursementsLinked++
			}
		}
	}

	s.log.WithFields(logger.Fields{
		"bills":          len(bills),
		"linked":         result.BillsLinked,
		"reimbursements": result.ReimbursementsLinked,
	}).Info("linking run completed")

	return result, nil
}

// linkBill runs the full pipeline for one bill: one neighborhood fetch, both
// matchers against that same candidate set, then at most two updates. The
// two updates are independent; a failure after the first leaves the bill
// partially linked, which a re-run completes without duplication.
func (s *Service) linkBill(ctx context.Context, bill *models.Bill) (BillLinkResult, error) {
	result := BillLinkResult{BillID: bill.ID}

	operations, err := s.fetchNeighboringOperations(ctx, bill)
	if err != nil {
		return result, errors.WrapIfNeeded(err, errors.CategoryStorage,
			errors.CodeQueryFailed, "failed to fetch neighboring operations").
			WithContext("bill_id", bill.ID)
	}

	s.log.WithFields(logger.Fields{
		"bill_id":    bill.ID,
		"candidates": len(operations),
	}).Debug("neighborhood fetched")

	debitOp := findDebitOperation(bill, operations, s.options)
	if debitOp != nil {
		result.DebitOperationID = debitOp.ID

		applied, err := s.linkBillToOperation(ctx, bill, debitOp)
		if err != nil {
			return result, err
		}
		if applied {
			result.AppliedUpdates = append(result.AppliedUpdates, UpdateBillLinked)
		}

		s.log.WithFields(logger.Fields{
			"bill_id":      bill.ID,
			"operation_id": debitOp.ID,
			"applied":      applied,
		}).Debug("debit operation matched")
	}

	reimbursedOp := findReimbursedOperation(bill, operations)
	if reimbursedOp != nil {
		result.ReimbursedOperationID = reimbursedOp.ID

		applied, err := s.linkReimbursement(ctx, bill, reimbursedOp, debitOp)
		if err != nil {
			return result, err
		}
		if applied {
			result.AppliedUpdates = append(result.AppliedUpdates, UpdateReimbursementLinked)
		}

		s.log.WithFields(logger.Fields{
			"bill_id":      bill.ID,
			"operation_id": reimbursedOp.ID,
			"applied":      applied,
		}).Debug("reimbursed operation matched")
	}

	return result, nil
}

// Options returns the options the service runs with.
func (s *Service) Options() *Options {
	return s.options
}
