package tui

import "github.com/yourusername/quiz-forge/internal/track"

// stateMsg は追跡エンジンからの派生状態の更新です。
type stateMsg struct {
	State track.DerivedState
}

// resultMsg は成功終端後に取得した成果物です。
type resultMsg struct {
	Raw []byte
}

// resultErrMsg は成果物取得の失敗通知です。
type resultErrMsg struct {
	Err error
}

// closedMsg はイベントチャネルが閉じたことを示します。
type closedMsg struct{}
