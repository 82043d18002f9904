// Package commands は quizctl のサブコマンドを提供します。
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yourusername/quiz-forge/internal/client"
)

const cliExecutable = "quizctl"

// NewCommand は quizctl のルートコマンドを組み立てます。
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           cliExecutable,
		Short:         "quizctl はドキュメントのアップロードとクイズ生成をターミナルから操作します",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("server", "http://localhost:8080", "APIサーバーのURL")
	viper.SetEnvPrefix("QUIZ_FORGE")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("server", cmd.PersistentFlags().Lookup("server"))

	cmd.AddCommand(newUploadCommand())
	cmd.AddCommand(newGenerateCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newQuizCommand())
	return cmd
}

// apiClient は設定済みのサーバーURLでクライアントを作ります。
func apiClient() *client.Client {
	return client.New(viper.GetString("server"))
}
