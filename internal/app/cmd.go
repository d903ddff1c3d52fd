package app

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitoshi/secondbrain/internal/config"
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

// NewRootCommand はsecondbrainのルートコマンドを生成する。
// サブコマンド無しで起動した場合はserveとして動作する。
// wはログの出力先。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "secondbrain",
		Short:         "学生向けのメモ・タスク・予定・試験計画を管理するSecond Brain APIサーバー",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          withConfig(w, CommandServe, runServe),
	}

	root.AddCommand(
		&cobra.Command{
			Use:   string(CommandServe),
			Short: "APIサーバーを起動する",
			Args:  cobra.NoArgs,
			RunE:  withConfig(w, CommandServe, runServe),
		},
		&cobra.Command{
			Use:   string(CommandWorker),
			Short: "期限切れセッションを定期的に削除するワーカーを起動する",
			Args:  cobra.NoArgs,
			RunE:  withConfig(w, CommandWorker, runWorker),
		},
		&cobra.Command{
			Use:   string(CommandMigrate),
			Short: "データベースマイグレーションを適用する",
			Args:  cobra.NoArgs,
			RunE:  withConfig(w, CommandMigrate, runMigrate),
		},
		newHealthcheckCommand(),
	)

	return root
}

// newHealthcheckCommand はヘルスチェックコマンドを生成する。
// 軽量サブコマンドのため、設定の読み込みとログの初期化は行わない。
func newHealthcheckCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "起動中のAPIサーバーの/healthを確認する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(cmd.Context(), healthcheckURL(port))
		},
	}
	defaultPort := os.Getenv("SERVER_PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	cmd.Flags().StringVar(&port, "port", defaultPort, "APIサーバーのポート")
	return cmd
}

// withConfig は設定の読み込みとログの初期化を行ってから実行するRunEを返す。
func withConfig(w io.Writer, command Command, run func(ctx context.Context, cfg *config.Config) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := Init(w)
		if err != nil {
			return err
		}
		defer closer.Close()

		logStartup(command, cfg)
		return run(cmd.Context(), cfg)
	}
}
