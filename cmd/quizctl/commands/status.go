package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/quiz-forge/internal/track"
)

// newStatusCommand はジョブの現在状態を1回だけ取得して表示します。
func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <jobId>",
		Short: "ジョブの現在状態を表示します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient()

			snapshot, err := c.FetchStatus(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("ステータスの取得に失敗しました: %w", err)
			}

			fmt.Printf("jobId:  %s\nstatus: %s\n", snapshot.JobID, snapshot.Status)
			if p := snapshot.Progress; p != nil && p.TotalUnits > 0 {
				fmt.Printf("progress: %d/%d\n", p.ProcessedUnits, p.TotalUnits)
			}
			if estimate := track.FormatEstimate(snapshot.EstimatedTimeSeconds); estimate != "" {
				fmt.Printf("estimate: %s\n", estimate)
			}
			if snapshot.ErrorDetail != "" {
				fmt.Printf("error: %s\n", snapshot.ErrorDetail)
			}
			if snapshot.ResultID != "" {
				fmt.Printf("resultId: %s\n", snapshot.ResultID)
			}
			return nil
		},
	}
	return cmd
}
