package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CPatchane/cozy-konnector-libs/cmd/billlinker/config"
	"github.com/CPatchane/cozy-konnector-libs/internal/linker"
	"github.com/CPatchane/cozy-konnector-libs/internal/loader"
	"github.com/CPatchane/cozy-konnector-libs/internal/store"
)

// Flags for the link command
var (
	billsFile      string
	dbPath         string
	identifiers    []string
	bankIdentifier string
	amountDelta    float64
	dateDelta      int
	minDateDelta   int
	maxDateDelta   int
	outputFormat   string
)

// linkCmd represents the link command
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link bills to the banking operations that paid them",
	Long: `Link processes a batch of bills against the operations in the ledger
store. For each bill it searches a date window around the bill's date for
the operation debited for the bill, and, for refund bills, for the
operation representing the reimbursed expense.

Examples:
  # Basic run
  billlinker link --db ledger.db --bills bills.json --identifiers "harmonie mutuelle"

  # Several identifiers and custom tolerances
  billlinker link --db ledger.db --bills bills.json \
    --identifiers "edf,electricite de france" \
    --amount-delta 0.1 --min-date-delta 20 --max-date-delta 29

  # A bank_identifier override wins over --identifiers
  billlinker link --db ledger.db --bills bills.json --bank-identifier "EDF"`,

	PreRunE: validateLinkFlags,
	RunE:    runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)

	// Required flags
	linkCmd.Flags().StringVarP(&billsFile, "bills", "b", "", "path to the bills JSON file (required)")
	linkCmd.Flags().StringVar(&dbPath, "db", "billlinker.db", "path to the SQLite ledger store")

	// Matching configuration flags
	linkCmd.Flags().StringSliceVarP(&identifiers, "identifiers", "i", []string{}, "label substrings identifying the biller")
	linkCmd.Flags().StringVar(&bankIdentifier, "bank-identifier", "", "field override replacing the configured identifiers")
	linkCmd.Flags().Float64VarP(&amountDelta, "amount-delta", "a", 0.001, "maximum amount difference for a debit match")
	linkCmd.Flags().IntVarP(&dateDelta, "date-delta", "d", 15, "candidate window bound in days, fallback for both sides")
	linkCmd.Flags().IntVar(&minDateDelta, "min-date-delta", -1, "days before the bill date (defaults to date-delta)")
	linkCmd.Flags().IntVar(&maxDateDelta, "max-date-delta", -1, "days after the bill date (defaults to date-delta)")

	// Output flags
	linkCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json")

	linkCmd.MarkFlagRequired("bills")

	// Bind flags to viper
	viper.BindPFlag("bills", linkCmd.Flags().Lookup("bills"))
	viper.BindPFlag("db", linkCmd.Flags().Lookup("db"))
	viper.BindPFlag("identifiers", linkCmd.Flags().Lookup("identifiers"))
	viper.BindPFlag("bank-identifier", linkCmd.Flags().Lookup("bank-identifier"))
	viper.BindPFlag("amount-delta", linkCmd.Flags().Lookup("amount-delta"))
	viper.BindPFlag("date-delta", linkCmd.Flags().Lookup("date-delta"))
	viper.BindPFlag("min-date-delta", linkCmd.Flags().Lookup("min-date-delta"))
	viper.BindPFlag("max-date-delta", linkCmd.Flags().Lookup("max-date-delta"))
	viper.BindPFlag("output-format", linkCmd.Flags().Lookup("output-format"))
}

func validateLinkFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	billsFile = viper.GetString("bills")
	dbPath = viper.GetString("db")
	identifiers = viper.GetStringSlice("identifiers")
	bankIdentifier = viper.GetString("bank-identifier")
	amountDelta = viper.GetFloat64("amount-delta")
	dateDelta = viper.GetInt("date-delta")
	minDateDelta = viper.GetInt("min-date-delta")
	maxDateDelta = viper.GetInt("max-date-delta")
	outputFormat = viper.GetString("output-format")

	if billsFile == "" {
		return fmt.Errorf("bills file is required")
	}
	if err := validateFileExists(billsFile, "bills file"); err != nil {
		return err
	}
	if err := validateFileExists(dbPath, "ledger store"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}

	if amountDelta < 0 {
		return fmt.Errorf("amount delta cannot be negative")
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Options resolve before anything touches the store; missing
	// identifiers abort the whole run here.
	options, err := config.CreateLinkerOptions(
		bankIdentifier, identifiers, amountDelta, dateDelta, minDateDelta, maxDateDelta)
	if err != nil {
		return err
	}

	bills, err := loader.LoadBills(billsFile)
	if err != nil {
		return err
	}

	st, err := store.OpenSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	service, err := linker.NewService(st, "", options)
	if err != nil {
		return err
	}

	result, err := service.LinkBills(ctx, bills)
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	default:
		printConsoleResult(result)
	}

	return nil
}

func printConsoleResult(result *linker.Result) {
	fmt.Printf("Processed %d bills: %d linked, %d reimbursements recorded.\n",
		len(result.Bills), result.BillsLinked, result.ReimbursementsLinked)

	for _, bill := range result.Bills {
		switch {
		case bill.DebitOperationID != "" && bill.ReimbursedOperationID != "":
			fmt.Printf("  %s -> operation %s (reimburses %s)\n",
				bill.BillID, bill.DebitOperationID, bill.ReimbursedOperationID)
		case bill.DebitOperationID != "":
			fmt.Printf("  %s -> operation %s\n", bill.BillID, bill.DebitOperationID)
		case bill.ReimbursedOperationID != "":
			fmt.Printf("  %s reimburses operation %s\n", bill.BillID, bill.ReimbursedOperationID)
		default:
			fmt.Printf("  %s -> no match\n", bill.BillID)
		}
	}
}
