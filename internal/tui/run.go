package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yourusername/quiz-forge/internal/quiz"
	"github.com/yourusername/quiz-forge/internal/track"
)

// Track はジョブの追跡画面を起動し、終端まで（または中断まで）表示します。
// 成功終端した生成ジョブでは取得した成果物を返します。
func Track(ctx context.Context, family track.Family, client track.StatusClient, jobID, title string) (*quiz.Quiz, error) {
	var model *Model
	controller := track.NewController(family, client, track.Callbacks{
		OnResult:      func(raw []byte) { model.PushResult(raw) },
		OnResultError: func(err error) { model.PushResultError(err) },
	})
	model = NewModel(ctx, controller, jobID, title)

	if err := controller.Start(jobID); err != nil {
		return nil, err
	}

	prog := tea.NewProgram(model, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		controller.Stop()
		return nil, err
	}

	fm, ok := final.(*Model)
	if !ok {
		return nil, fmt.Errorf("unexpected final model %T", final)
	}
	fm.shutdown()

	state := fm.FinalState()
	switch state.Outcome {
	case track.OutcomeFailure:
		if snap := state.LastSnapshot; snap != nil && snap.ErrorDetail != "" {
			return nil, fmt.Errorf("ジョブが失敗しました: %s", snap.ErrorDetail)
		}
		return nil, fmt.Errorf("ジョブが失敗しました")
	case track.OutcomeCancelled:
		return nil, nil
	}

	result, resultErr := fm.Result()
	if resultErr != nil {
		return nil, fmt.Errorf("成果物の取得に失敗しました: %w", resultErr)
	}
	return result, nil
}
