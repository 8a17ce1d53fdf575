package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraconstructs/campusapi/cmd/users"
	"github.com/terraconstructs/campusapi/internal/config"
	"github.com/terraconstructs/campusapi/internal/logging"
)

var (
	cfg        *config.Config
	logger     zerolog.Logger
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "campusapi",
	Short: "Campus records API server",
	Long: `campusapi serves the school records REST API: sign-up and sign-in with a
password or Google, bearer token authentication, revocation and role-based access.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", configFile, err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger = logging.New(cfg.Log, os.Stderr)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.String("db-url", "", "Database connection URL (env: CAMPUS_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: CAMPUS_SERVER_ADDR)")
	flags.String("server-url", "", "Public base URL (env: CAMPUS_SERVER_URL)")
	flags.Bool("debug", false, "Enable debug logging (env: CAMPUS_DEBUG)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", flags.Lookup("server-addr"))
	_ = viper.BindPFlag("server_url", flags.Lookup("server-url"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(users.UsersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
