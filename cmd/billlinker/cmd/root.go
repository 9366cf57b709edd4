package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CPatchane/cozy-konnector-libs/cmd/billlinker/config"
	"github.com/CPatchane/cozy-konnector-libs/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "billlinker",
	Short: "Bill to bank operation linking tool",
	Long: `Billlinker links vendor bills to the banking operations that paid them,
and refund bills to the operations they reimburse.

Operations live in a local SQLite ledger store. Import a bank CSV export
first, then run the linker over a bills file.

Examples:
  billlinker import-operations --db ledger.db --file operations.csv
  billlinker link --db ledger.db --bills bills.json --identifiers "harmonie mutuelle"`,
	Version: getVersionString(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.NewLogger(config.CreateLoggerConfig(viper.GetBool("verbose")))
		if err != nil {
			return err
		}
		logger.SetGlobalLogger(log)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("BILLLINKER")
	viper.AutomaticEnv()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
