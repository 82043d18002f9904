package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yourusername/quiz-forge/internal/track"
	"github.com/yourusername/quiz-forge/internal/tui"
)

// newUploadCommand はドキュメントをアップロードし、処理ジョブを追跡します。
func newUploadCommand() *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "ドキュメントをアップロードして処理ジョブを開始します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient()

			result, err := c.UploadDocument(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("アップロードに失敗しました: %w", err)
			}
			fmt.Printf("documentId: %s\njobId: %s\n", result.DocumentID, result.JobID)

			if noWatch {
				return nil
			}
			_, err = tui.Track(cmd.Context(), track.DocumentFamily, c, result.JobID, filepath.Base(args[0]))
			return err
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "ジョブを追跡せずジョブIDのみ表示する")
	return cmd
}
