// Command konutpricer trains and serves the housing price model from the
// command line.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"konutpricer/pkg/log"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "konutpricer",
		Short: "Housing price prediction for Istanbul listings",
		Long: `konutpricer cleans a listing dataset, trains an ensemble price model
with confidence intervals, and answers price queries from the persisted
model bundle.`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./konutpricer.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("bundle", "models/konutpricer.bundle", "path of the model bundle")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("model.bundle", rootCmd.PersistentFlags().Lookup("bundle"))

	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(locationsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(bandsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("konutpricer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("KONUTPRICER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("model.seed", 42)
	viper.SetDefault("model.candidates", []string{})
	viper.SetDefault("uncertainty.iterations", 10)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	log.SetLevel(viper.GetString("logging.level"))
	return nil
}
