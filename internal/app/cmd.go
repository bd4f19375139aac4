package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hitoshi/lactech/internal/config"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// NewRootCommand はlactechのルートコマンドを生成する。
// サブコマンドなしで実行した場合はserveとして起動する。
// wはログの出力先。
func NewRootCommand(w io.Writer) *cobra.Command {
	var envFile string

	load := func() (*config.Config, error) {
		return Init(w, envFile)
	}

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		return runServe(cfg)
	}

	root := &cobra.Command{
		Use:   "lactech",
		Short: "LacTech farm milk production service",
		Long: `LacTech records daily milk production per farm and serves the
dashboard, production history and account management API.

Run without a subcommand to start the API server.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(w)
	root.SetErr(w)
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file before reading config")

	serveCmd := &cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	workerCmd := &cobra.Command{
		Use:   string(CommandWorker),
		Short: "Start the background worker (secondary account relation repair)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runWorker(cfg)
		},
	}

	root.AddCommand(serveCmd, workerCmd, newMigrateCommand(load), newHealthcheckCommand())
	return root
}

// newMigrateCommand はmigrateコマンドとup/down/versionサブコマンドを生成する。
// サブコマンドなしのmigrateはupとして扱う。
func newMigrateCommand(load func() (*config.Config, error)) *cobra.Command {
	run := func(direction string, steps int) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		return runMigrate(cfg, direction, steps)
	}

	migrateCmd := &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("up", 0)
		},
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("up", 0)
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			return run("down", steps)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("version", 0)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

// newHealthcheckCommand はhealthcheckコマンドを生成する。
// 必須環境変数がないコンテナ内でも動くよう、設定は読み込まずSERVER_PORTだけを参照する。
func newHealthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe the local /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(healthcheckPort())
		},
	}
}
