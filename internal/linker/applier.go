package linker

import (
	"context"

	"github.com/CPatchane/cozy-konnector-libs/internal/models"
	"github.com/CPatchane/cozy-konnector-libs/pkg/errors"
)

// linkBillToOperation appends a namespaced bill reference to the operation's
// bills collection and persists the full updated collection. Idempotent: if
// the operation already references the bill, no update call is made.
// Reports whether an update was applied.
func (s *Service) linkBillToOperation(ctx context.Context, bill *models.Bill, op *models.Operation) (bool, error) {
	ref := models.BillReference(models.DoctypeBills, bill.ID)
	if op.HasBillReference(ref) {
		return false, nil
	}

	op.Bills = append(op.Bills, ref)
	err := s.store.UpdateAttributes(ctx, s.doctype, op.ID, map[string]interface{}{
		"bills": op.Bills,
	})
	if err != nil {
		return false, errors.WrapIfNeeded(err, errors.CategoryStorage,
			errors.CodeUpdateFailed, "failed to persist bill link")
	}

	return true, nil
}

// linkReimbursement appends a reimbursement record to the operation's
// reimbursements collection and persists the full updated collection.
// matched carries the operation debited for the same bill, when the debit
// matcher found one; its ID ends up in the record and may legitimately be
// empty. Idempotent on the raw bill ID within the collection.
func (s *Service) linkReimbursement(ctx context.Context, bill *models.Bill, op, matched *models.Operation) (bool, error) {
	if op.HasReimbursement(bill.ID) {
		return false, nil
	}

	record := models.Reimbursement{
		BillID: bill.ID,
		Amount: bill.Amount,
	}
	if matched != nil {
		record.OperationID = matched.ID
	}

	op.Reimbursements = append(op.Reimbursements, record)
	err := s.store.UpdateAttributes(ctx, s.doctype, op.ID, map[string]interface{}{
		"reimbursements": op.Reimbursements,
	})
	if err != nil {
		return false, errors.WrapIfNeeded(err, errors.CategoryStorage,
			errors.CodeUpdateFailed, "failed to persist reimbursement link")
	}

	return true, nil
}
