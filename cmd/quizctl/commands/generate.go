package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourusername/quiz-forge/internal/quiz"
	"github.com/yourusername/quiz-forge/internal/track"
	"github.com/yourusername/quiz-forge/internal/tui"
)

// newGenerateCommand はクイズ生成ジョブを開始し、完了まで追跡します。
func newGenerateCommand() *cobra.Command {
	var (
		title             string
		questionsPerChunk int
		noWatch           bool
		outputJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "generate <documentId>",
		Short: "処理済みドキュメントからクイズを生成します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient()

			jobID, err := c.GenerateQuiz(cmd.Context(), quiz.GenerationParams{
				DocumentID:        args[0],
				Title:             title,
				QuestionsPerChunk: questionsPerChunk,
			})
			if err != nil {
				return fmt.Errorf("クイズ生成の開始に失敗しました: %w", err)
			}
			fmt.Printf("jobId: %s\n", jobID)

			if noWatch {
				return nil
			}

			result, err := tui.Track(cmd.Context(), track.GenerationFamily, c, jobID, title)
			if err != nil {
				return err
			}
			if result == nil {
				return nil
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printQuiz(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "クイズのタイトル（省略時はドキュメント名）")
	cmd.Flags().IntVar(&questionsPerChunk, "questions-per-chunk", 0, "1チャンクあたりの設問数")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "ジョブを追跡せずジョブIDのみ表示する")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "生成されたクイズをJSONで出力する")
	return cmd
}

func printQuiz(q *quiz.Quiz) {
	fmt.Printf("\n%s（%d問）\n", q.Title, len(q.Questions))
	for i, question := range q.Questions {
		fmt.Printf("\n%d. %s\n", i+1, question.Prompt)
		for j, option := range question.Options {
			marker := " "
			if j == question.AnswerIndex {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, option)
		}
	}
}
