package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-gateway/internal/app"
	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/config"
	applog "github.com/vovakirdan/wirechat-gateway/internal/log"
	"github.com/vovakirdan/wirechat-gateway/internal/store/sqlite"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "wirechat-gateway",
		Short:         "Chat request gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newServeCmd(flags), newUserCmd(flags))
	return root
}

// loadConfig resolves configuration and applies the persistent flag overrides.
func loadConfig(flags *rootFlags) (config.Config, error) {
	bootstrap := applog.New("info")
	cfg, path, err := config.Load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	bootstrap.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			logger := applog.New(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, &cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	return cmd
}

func newUserCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	create := &cobra.Command{
		Use:   "create <username> <password>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd.Context(), flags, func(ctx context.Context, svc *auth.Service) error {
				u, err := svc.CreateUser(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (uid %d)\n", u.Username, u.ID)
				return nil
			})
		},
	}

	grant := &cobra.Command{
		Use:   "grant <username> <group>",
		Short: "Add a user to a group such as administrators",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd.Context(), flags, func(ctx context.Context, svc *auth.Service) error {
				u, err := svc.Grant(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (uid %d) to %q\n", u.Username, u.ID, args[1])
				return nil
			})
		},
	}

	cmd.AddCommand(create, grant)
	return cmd
}

func withAuth(ctx context.Context, flags *rootFlags, fn func(context.Context, *auth.Service) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	return fn(ctx, auth.NewService(st, app.JWTConfig(&cfg)))
}
