// Package config translates CLI values into component configurations.
package config

import (
	"github.com/shopspring/decimal"

	"github.com/CPatchane/cozy-konnector-libs/internal/linker"
	"github.com/CPatchane/cozy-konnector-libs/pkg/logger"
)

// CreateLinkerOptions builds the effective linker options from CLI values.
// A non-empty bankIdentifier becomes the bank_identifier field override and
// wins over the configured identifiers.
func CreateLinkerOptions(bankIdentifier string, identifiers []string, amountDelta float64, dateDelta, minDateDelta, maxDateDelta int) (*linker.Options, error) {
	fields := linker.Fields{}
	if bankIdentifier != "" {
		fields[linker.FieldBankIdentifier] = bankIdentifier
	}

	return linker.BuildOptions(
		fields,
		identifiers,
		decimal.NewFromFloat(amountDelta),
		dateDelta,
		minDateDelta,
		maxDateDelta,
	)
}

// CreateLoggerConfig builds the logger configuration for the CLI run.
func CreateLoggerConfig(verbose bool) *logger.Config {
	if verbose {
		return logger.DebugConfig()
	}
	return logger.DefaultConfig()
}
