package linker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CPatchane/cozy-konnector-libs/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testOptions(identifiers ...string) *Options {
	return &Options{
		Identifiers:  identifiers,
		AmountDelta:  decimal.NewFromFloat(0.1),
		MinDateDelta: DefaultDateDelta,
		MaxDateDelta: DefaultDateDelta,
	}
}

func TestFindDebitOperationFirstMatch(t *testing.T) {
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-20), Label: "Harmonie Mutuelle Cotisation", Date: day(2024, 3, 8)},
		{ID: "o2", Amount: decimal.NewFromInt(-100), Label: "HARMONIE MUTUELLE PRELEVEMENT", Date: day(2024, 3, 9)},
		{ID: "o3", Amount: decimal.NewFromInt(-100), Label: "Harmonie Mutuelle Remboursement", Date: day(2024, 3, 10)},
	}

	bill := &models.Bill{
		ID:     "b1",
		Amount: decimal.NewFromInt(-100),
		Date:   day(2024, 3, 9),
	}

	got := findDebitOperation(bill, operations, testOptions("harmonie mutuelle"))
	if got == nil {
		t.Fatal("Expected a match, got nil")
	}
	// o1 fails the amount check; o2 is the first to satisfy both conditions,
	// even though o3 also would.
	if got.ID != "o2" {
		t.Errorf("Expected o2, got %s", got.ID)
	}
}

func TestFindDebitOperationAmountOutOfTolerance(t *testing.T) {
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-100), Label: "Harmonie Mutuelle", Date: day(2024, 3, 9)},
	}

	bill := &models.Bill{ID: "b1", Amount: decimal.NewFromInt(-200), Date: day(2024, 3, 9)}

	if got := findDebitOperation(bill, operations, testOptions("harmonie mutuelle")); got != nil {
		t.Errorf("Expected no match, got %s", got.ID)
	}
}

func TestFindDebitOperationWithinTolerance(t *testing.T) {
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromFloat(-100.05), Label: "Harmonie Mutuelle", Date: day(2024, 3, 9)},
	}

	bill := &models.Bill{ID: "b1", Amount: decimal.NewFromInt(-100), Date: day(2024, 3, 9)}

	got := findDebitOperation(bill, operations, testOptions("harmonie mutuelle"))
	if got == nil || got.ID != "o1" {
		t.Errorf("Expected o1 within tolerance, got %v", got)
	}
}

func TestFindDebitOperationIdentifierCaseInsensitive(t *testing.T) {
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-50), Label: "PRELEVEMENT EDF ENERGIE", Date: day(2024, 3, 9)},
	}

	bill := &models.Bill{ID: "b1", Amount: decimal.NewFromInt(-50), Date: day(2024, 3, 9)}

	got := findDebitOperation(bill, operations, testOptions("edf"))
	if got == nil || got.ID != "o1" {
		t.Errorf("Expected label match regardless of case, got %v", got)
	}
}

func TestFindDebitOperationNoIdentifierInLabel(t *testing.T) {
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-50), Label: "CARTE 1234 SUPERMARCHE", Date: day(2024, 3, 9)},
	}

	bill := &models.Bill{ID: "b1", Amount: decimal.NewFromInt(-50), Date: day(2024, 3, 9)}

	if got := findDebitOperation(bill, operations, testOptions("edf")); got != nil {
		t.Errorf("Expected no match, got %s", got.ID)
	}
}

func TestFindDebitOperationRefundNormalization(t *testing.T) {
	// A refund bill's amounts normalize to negative values; a credit
	// operation of the same magnitude must still match.
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(30), Label: "VIREMENT CPAM", Date: day(2024, 3, 9)},
	}

	bill := &models.Bill{
		ID:       "b1",
		Amount:   decimal.NewFromInt(30),
		IsRefund: true,
		Date:     day(2024, 3, 9),
	}

	got := findDebitOperation(bill, operations, testOptions("cpam"))
	if got == nil || got.ID != "o1" {
		t.Errorf("Expected refund credit to match, got %v", got)
	}
}

func TestFindDebitOperationEmptyCandidates(t *testing.T) {
	bill := &models.Bill{ID: "b1", Amount: decimal.NewFromInt(-50), Date: day(2024, 3, 9)}

	if got := findDebitOperation(bill, nil, testOptions("edf")); got != nil {
		t.Errorf("Expected no match on empty candidates, got %s", got.ID)
	}
}

func TestFindReimbursedOperation(t *testing.T) {
	bill := &models.Bill{
		ID:             "b1",
		Amount:         decimal.NewFromInt(5),
		IsRefund:       true,
		Type:           "health_costs",
		Date:           day(2024, 3, 12),
		OriginalAmount: decimal.NewFromInt(-30),
		OriginalDate:   day(2024, 3, 8),
	}

	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-30), Label: "PHARMACIE", Date: day(2024, 3, 8)},
	}

	got := findReimbursedOperation(bill, operations)
	if got == nil {
		t.Fatal("Expected a match, got nil")
	}
	if got.ID != "o1" {
		t.Errorf("Expected o1, got %s", got.ID)
	}
}

func TestFindReimbursedOperationIneligibleBills(t *testing.T) {
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-30), Label: "PHARMACIE", Date: day(2024, 3, 8)},
	}

	tests := []struct {
		name string
		bill *models.Bill
	}{
		{
			"not a refund",
			&models.Bill{
				ID: "b1", Amount: decimal.NewFromInt(5), Type: "health_costs",
				Date: day(2024, 3, 12), OriginalAmount: decimal.NewFromInt(-30), OriginalDate: day(2024, 3, 8),
			},
		},
		{
			"non-reimbursable type",
			&models.Bill{
				ID: "b1", Amount: decimal.NewFromInt(5), IsRefund: true, Type: "energy",
				Date: day(2024, 3, 12), OriginalAmount: decimal.NewFromInt(-30), OriginalDate: day(2024, 3, 8),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findReimbursedOperation(tt.bill, operations); got != nil {
				t.Errorf("Expected no match, got %s", got.ID)
			}
		})
	}
}

func TestFindReimbursedOperationDateMustBeSameDay(t *testing.T) {
	bill := &models.Bill{
		ID:             "b1",
		Amount:         decimal.NewFromInt(5),
		IsRefund:       true,
		Type:           "health_costs",
		Date:           day(2024, 3, 12),
		OriginalAmount: decimal.NewFromInt(-30),
		OriginalDate:   day(2024, 3, 8),
	}

	tests := []struct {
		name   string
		opDate time.Time
	}{
		{"one day before", day(2024, 3, 7)},
		{"one day after", day(2024, 3, 9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			operations := []*models.Operation{
				{ID: "o1", Amount: decimal.NewFromInt(-30), Date: tt.opDate},
			}
			if got := findReimbursedOperation(bill, operations); got != nil {
				t.Errorf("Expected no match for %s, got %s", tt.name, got.ID)
			}
		})
	}

	// Same day, different time of day, still matches.
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-30), Date: day(2024, 3, 8).Add(18 * time.Hour)},
	}
	if got := findReimbursedOperation(bill, operations); got == nil {
		t.Error("Expected same-day match regardless of time of day")
	}
}

func TestFindReimbursedOperationExactAmountRequired(t *testing.T) {
	bill := &models.Bill{
		ID:             "b1",
		Amount:         decimal.NewFromInt(5),
		IsRefund:       true,
		Type:           "health_costs",
		Date:           day(2024, 3, 12),
		OriginalAmount: decimal.NewFromInt(-30),
		OriginalDate:   day(2024, 3, 8),
	}

	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromFloat(-30.01), Date: day(2024, 3, 8)},
	}

	if got := findReimbursedOperation(bill, operations); got != nil {
		t.Errorf("Expected no match for near-equal amount, got %s", got.ID)
	}
}

func TestFindReimbursedOperationOverReimbursementGuard(t *testing.T) {
	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-30), Date: day(2024, 3, 8)},
	}

	tests := []struct {
		name      string
		amount    decimal.Decimal
		wantMatch bool
	}{
		{"partial reimbursement", decimal.NewFromInt(5), true},
		{"full reimbursement", decimal.NewFromInt(30), false},
		{"over-reimbursement", decimal.NewFromInt(35), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := &models.Bill{
				ID:             "b1",
				Amount:         tt.amount,
				IsRefund:       true,
				Type:           "health_costs",
				Date:           day(2024, 3, 12),
				OriginalAmount: decimal.NewFromInt(-30),
				OriginalDate:   day(2024, 3, 8),
			}

			got := findReimbursedOperation(bill, operations)
			if tt.wantMatch && got == nil {
				t.Error("Expected a match, got nil")
			}
			if !tt.wantMatch && got != nil {
				t.Errorf("Expected no match, got %s", got.ID)
			}
		})
	}
}

func TestFindReimbursedOperationFirstMatch(t *testing.T) {
	bill := &models.Bill{
		ID:             "b1",
		Amount:         decimal.NewFromInt(5),
		IsRefund:       true,
		Type:           "health_costs",
		Date:           day(2024, 3, 12),
		OriginalAmount: decimal.NewFromInt(-30),
		OriginalDate:   day(2024, 3, 8),
	}

	operations := []*models.Operation{
		{ID: "o1", Amount: decimal.NewFromInt(-30), Date: day(2024, 3, 8)},
		{ID: "o2", Amount: decimal.NewFromInt(-30), Date: day(2024, 3, 8)},
	}

	got := findReimbursedOperation(bill, operations)
	if got == nil || got.ID != "o1" {
		t.Errorf("Expected first qualifying candidate o1, got %v", got)
	}
}
