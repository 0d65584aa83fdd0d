package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Yepoleb/gogdb/internal/app"
	"github.com/Yepoleb/gogdb/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
func newApp() (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "gogdb",
	Short: "GOG catalog sync tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Storage Path: %s\n", cfg.StoragePath)
		fmt.Printf("Log Dir: %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Storage Path: %s\n", cfg.StoragePath)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Workers:      %d\n", cfg.Updater.ProductWorkers)
		fmt.Printf("Country:      %s\n", cfg.Updater.Country)
		fmt.Printf("Currency:     %s\n", cfg.Updater.Currency)
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Log in and store an API token",
	Long: "Log in to gog.com in a browser and paste the redirect URL here. " +
		"After completing the login you are redirected to a blank page; copy " +
		"the full URL starting with https://embed.gog.com/on_login_success.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Please open %s and log in.\n", a.AuthURL())
		fmt.Print("Login URL: ")
		// The URL carries a one-time login code, keep it out of the
		// terminal scrollback.
		line, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading login URL: %w", err)
		}

		if err := a.Auth(cmd.Context(), string(line)); err != nil {
			return err
		}
		fmt.Println("Token saved")
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run a full catalog sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Update(cmd.Context())
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the search index and derived documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Index(cmd.Context())
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run a full sync followed by an index rebuild",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Update(cmd.Context()); err != nil {
			return err
		}
		return a.Index(cmd.Context())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(allCmd)
}
