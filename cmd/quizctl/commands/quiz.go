package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newQuizCommand は生成済みクイズを取得して表示します。
func newQuizCommand() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "quiz <quizId>",
		Short: "生成済みクイズを表示します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient()

			q, err := c.GetQuiz(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("クイズの取得に失敗しました: %w", err)
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(q)
			}
			printQuiz(q)
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "クイズをJSONで出力する")
	return cmd
}
