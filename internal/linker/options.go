// Package linker links vendor bills to the banking operations that paid
// them, and refund bills to the operations they reimburse.
//
// For each bill the linker fetches a date-windowed neighborhood of
// operations from the ledger store, runs the debit and reimbursement
// matchers against that single candidate set, and applies at most two
// idempotent updates to the matched operations. Bills are processed
// strictly sequentially; candidate sets are never shared across bills.
package linker

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CPatchane/cozy-konnector-libs/pkg/errors"
)

// Default option values.
var (
	// DefaultAmountDelta is the default tolerance for debit amount matching.
	DefaultAmountDelta = decimal.NewFromFloat(0.001)

	// DefaultDateDelta is the default window half-width in days, used for
	// either window bound left unset.
	DefaultDateDelta = 15
)

// FieldBankIdentifier is the field override that replaces the configured
// identifiers for a run.
const FieldBankIdentifier = "bank_identifier"

// Fields holds per-run field overrides supplied by the caller.
type Fields map[string]string

// Options configures a linking run.
type Options struct {
	// Identifiers are lower-cased substrings; an operation label must
	// contain one of them to qualify as a debit match.
	Identifiers []string

	// AmountDelta is the maximum absolute amount difference tolerated for a
	// debit match.
	AmountDelta decimal.Decimal

	// MinDateDelta and MaxDateDelta are the window bounds in days before and
	// after the bill's reference date.
	MinDateDelta int
	MaxDateDelta int
}

// DefaultOptions returns options with the documented defaults and no
// identifiers. Identifiers must be resolved before the options validate.
func DefaultOptions() *Options {
	return &Options{
		AmountDelta:  DefaultAmountDelta,
		MinDateDelta: DefaultDateDelta,
		MaxDateDelta: DefaultDateDelta,
	}
}

// BuildOptions resolves the effective options for a run. A bank_identifier
// field override wins over configured identifiers; identifiers are
// case-normalized to lower case. minDateDelta and maxDateDelta fall back to
// dateDelta when negative, and dateDelta falls back to DefaultDateDelta when
// negative. The call fails when no identifiers can be resolved: this is a
// configuration error and no bill must be processed after it.
func BuildOptions(fields Fields, identifiers []string, amountDelta decimal.Decimal, dateDelta, minDateDelta, maxDateDelta int) (*Options, error) {
	if override := strings.TrimSpace(fields[FieldBankIdentifier]); override != "" {
		identifiers = []string{override}
	}

	lowered := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		identifier = strings.ToLower(strings.TrimSpace(identifier))
		if identifier != "" {
			lowered = append(lowered, identifier)
		}
	}

	if dateDelta < 0 {
		dateDelta = DefaultDateDelta
	}
	if minDateDelta < 0 {
		minDateDelta = dateDelta
	}
	if maxDateDelta < 0 {
		maxDateDelta = dateDelta
	}

	opts := &Options{
		Identifiers:  lowered,
		AmountDelta:  amountDelta,
		MinDateDelta: minDateDelta,
		MaxDateDelta: maxDateDelta,
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// Validate checks that the options describe a runnable configuration.
func (o *Options) Validate() error {
	if len(o.Identifiers) == 0 {
		return errors.ConfigurationError(errors.CodeMissingIdentifiers, "identifiers", nil)
	}

	if o.AmountDelta.IsNegative() {
		return errors.ConfigurationError(errors.CodeInvalidOption, "amountDelta", nil).
			WithContext("value", o.AmountDelta.String())
	}

	if o.MinDateDelta < 0 || o.MaxDateDelta < 0 {
		return errors.ConfigurationError(errors.CodeInvalidOption, "dateDelta", nil)
	}

	return nil
}
