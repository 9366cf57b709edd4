package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CPatchane/cozy-konnector-libs/internal/loader"
	"github.com/CPatchane/cozy-konnector-libs/internal/store"
)

// Flags for the import-operations command
var (
	importFile string
	importDB   string
)

// importOpsCmd represents the import-operations command
var importOpsCmd = &cobra.Command{
	Use:   "import-operations",
	Short: "Import a bank operations CSV export into the ledger store",
	Long: `Import-operations reads a CSV export of banking operations
(columns: id,date,label,amount) and inserts every row into the SQLite
ledger store. Rows without an id get a generated one.

Examples:
  billlinker import-operations --db ledger.db --file operations.csv`,

	PreRunE: validateImportFlags,
	RunE:    runImportOperations,
}

func init() {
	rootCmd.AddCommand(importOpsCmd)

	importOpsCmd.Flags().StringVar(&importFile, "file", "", "path to the operations CSV file (required)")
	importOpsCmd.Flags().StringVar(&importDB, "db", "billlinker.db", "path to the SQLite ledger store")

	importOpsCmd.MarkFlagRequired("file")

	viper.BindPFlag("import-file", importOpsCmd.Flags().Lookup("file"))
	viper.BindPFlag("import-db", importOpsCmd.Flags().Lookup("db"))
}

func validateImportFlags(cmd *cobra.Command, args []string) error {
	if importFile == "" {
		return fmt.Errorf("operations file is required")
	}
	return validateFileExists(importFile, "operations file")
}

func runImportOperations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := store.OpenSQLiteStore(importDB)
	if err != nil {
		return err
	}
	defer st.Close()

	imported, err := loader.ImportOperationsCSV(ctx, importFile, st)
	if err != nil {
		return err
	}

	total, err := st.CountOperations(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d operations (%d total in store).\n", imported, total)
	return nil
}
