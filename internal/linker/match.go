package linker

import (
	"strings"

	"github.com/CPatchane/cozy-konnector-libs/internal/models"
)

// reimbursableTypes lists the bill categories that can represent money
// returned for a prior expense.
var reimbursableTypes = map[string]bool{
	"health_costs": true,
}

// findDebitOperation returns the first candidate operation whose label
// contains one of the configured identifiers (case-insensitive) and whose
// refund-normalized amount is within AmountDelta of the bill's. The first
// candidate satisfying both conditions wins; there is no best-match search.
// Returns nil when no candidate qualifies.
func findDebitOperation(bill *models.Bill, operations []*models.Operation, opts *Options) *models.Operation {
	billAmount := models.NormalizeAmount(bill.Amount, bill.IsRefund)

	for _, op := range operations {
		opAmount := models.NormalizeAmount(op.Amount, bill.IsRefund)
		if opAmount.Sub(billAmount).Abs().GreaterThan(opts.AmountDelta) {
			continue
		}

		label := strings.ToLower(op.Label)
		for _, identifier := range opts.Identifiers {
			if strings.Contains(label, identifier) {
				return op
			}
		}
	}

	return nil
}

// findReimbursedOperation returns the first candidate operation representing
// the original expense a refund bill reimburses. Only refund bills of a
// reimbursable type are eligible. A candidate qualifies when its normalized
// amount equals the normalized original amount exactly (no tolerance), its
// date and the bill's original date denote the same calendar day, and the
// reimbursed magnitude stays strictly below the original expense magnitude.
// Returns nil when the bill is ineligible or no candidate qualifies.
func findReimbursedOperation(bill *models.Bill, operations []*models.Operation) *models.Operation {
	if !bill.IsRefund || !reimbursableTypes[bill.Type] {
		return nil
	}

	originalAmount := models.NormalizeAmount(bill.OriginalAmount, bill.IsRefund)
	reimbursedAmount := models.NormalizeAmount(bill.Amount, bill.IsRefund)

	for _, op := range operations {
		opAmount := models.NormalizeAmount(op.Amount, bill.IsRefund)
		if !opAmount.Equal(originalAmount) {
			continue
		}

		if !models.SameCalendarDay(op.Date, bill.OriginalDate) {
			continue
		}

		// Normalized refund amounts are negative, so a strictly greater
		// value means a strictly smaller magnitude than the original
		// expense. Guards against over-reimbursement.
		if !reimbursedAmount.GreaterThan(opAmount) {
			continue
		}

		return op
	}

	return nil
}
