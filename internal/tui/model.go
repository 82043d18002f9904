// Package tui はジョブ追跡のターミナルUIを提供します。
// 追跡エンジンの購読者として派生状態を受け取り、進捗バーと
// 経過時間を描画します。
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/quiz-forge/internal/quiz"
	"github.com/yourusername/quiz-forge/internal/track"
)

// Model はジョブ1件の追跡画面です。
type Model struct {
	ctx        context.Context
	controller *track.Controller
	jobID      string
	title      string

	state     track.DerivedState
	result    *quiz.Quiz
	resultErr error

	spinner spinner.Model
	bar     bubblesprogress.Model

	width  int
	styles Styles

	// 追跡エンジンのコールバックはタイマーゴルーチンから届くため、
	// 一度チャネルに載せてから tea メッセージへ変換する
	eventCh     chan tea.Msg
	unsubscribe func()
}

// NewModel は Model を作成し、追跡エンジンの購読を開始します。
func NewModel(ctx context.Context, controller *track.Controller, jobID, title string) *Model {
	sty := defaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sty.Spinner

	m := &Model{
		ctx:        ctx,
		controller: controller,
		jobID:      jobID,
		title:      title,
		spinner:    sp,
		bar:        bubblesprogress.New(bubblesprogress.WithDefaultGradient(), bubblesprogress.WithWidth(40)),
		styles:     sty,
		eventCh:    make(chan tea.Msg, 256),
	}
	m.unsubscribe = controller.Subscribe(m.pushState)
	return m
}

// pushState は派生状態をイベントチャネルへ載せます。終端状態は必ず
// 配送し、途中経過はチャネルが詰まっていれば間引きます。
func (m *Model) pushState(state track.DerivedState) {
	if state.IsTerminal {
		m.eventCh <- stateMsg{State: state}
		return
	}
	select {
	case m.eventCh <- stateMsg{State: state}:
	default:
	}
}

// PushResult は成果物取得コールバックから呼びます。
func (m *Model) PushResult(raw []byte) {
	m.eventCh <- resultMsg{Raw: raw}
}

// PushResultError は成果物取得失敗のコールバックから呼びます。
func (m *Model) PushResultError(err error) {
	m.eventCh <- resultErrMsg{Err: err}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenEventsCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.shutdown()
			return m, tea.Quit
		case "c":
			if m.controller.Family().Cancellable() && !m.state.IsTerminal {
				// Cancel はローカル状態を即座に終端へ進める。
				// 反映は購読経由の stateMsg で届く。
				_ = m.controller.Cancel()
			}
		}
		// イベント待ちのコマンドは常に1つだけ走らせる
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case stateMsg:
		m.state = msg.State
		if m.state.IsTerminal && m.doneWaiting() {
			return m, tea.Quit
		}
		return m, m.listenEventsCmd()

	case resultMsg:
		var q quiz.Quiz
		if err := json.Unmarshal(msg.Raw, &q); err != nil {
			m.resultErr = err
		} else {
			m.result = &q
		}
		if m.state.IsTerminal {
			return m, tea.Quit
		}
		return m, m.listenEventsCmd()

	case resultErrMsg:
		m.resultErr = msg.Err
		if m.state.IsTerminal {
			return m, tea.Quit
		}
		return m, m.listenEventsCmd()

	case closedMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// doneWaiting は終端後にまだ待つものが無いかを返します。
// 成功終端した生成ジョブは成果物の到着まで画面を残します。
func (m *Model) doneWaiting() bool {
	if m.state.Outcome != track.OutcomeSuccess || !m.controller.Family().FetchesResult() {
		return true
	}
	return m.result != nil || m.resultErr != nil
}

func (m *Model) shutdown() {
	m.controller.Stop()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return closedMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("quiz-forge"))
	b.WriteString("  ")
	b.WriteString(m.styles.Subtitle.Render(m.title))
	b.WriteString("\n\n")

	stage := m.state.StageLabel
	if stage == "" {
		stage = "待機中"
	}
	if m.state.IsTerminal {
		b.WriteString(m.outcomeStyle().Render(stage))
	} else {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(m.styles.Stage.Render(stage))
	}
	b.WriteString("\n")

	b.WriteString(m.bar.ViewAs(float64(m.state.Percentage) / 100.0))
	b.WriteString(fmt.Sprintf(" %3d%%", m.state.Percentage))
	b.WriteString("\n")

	line := "経過時間 " + track.FormatElapsed(m.state.ElapsedSeconds)
	if !m.state.IsTerminal && m.state.LastSnapshot != nil {
		if estimate := track.FormatEstimate(m.state.LastSnapshot.EstimatedTimeSeconds); estimate != "" {
			line += "  " + estimate
		}
	}
	b.WriteString(m.styles.Faint.Render(line))
	b.WriteString("\n")

	if detail := m.detailLine(); detail != "" {
		b.WriteString("\n")
		b.WriteString(detail)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(m.helpLine()))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) outcomeStyle() lipgloss.Style {
	switch m.state.Outcome {
	case track.OutcomeSuccess:
		return m.styles.Success
	case track.OutcomeFailure:
		return m.styles.Error
	case track.OutcomeCancelled:
		return m.styles.Warning
	default:
		return m.styles.Info
	}
}

func (m *Model) detailLine() string {
	switch m.state.Outcome {
	case track.OutcomeFailure:
		if snap := m.state.LastSnapshot; snap != nil && snap.ErrorDetail != "" {
			return m.styles.Error.Render(snap.ErrorDetail)
		}
		return m.styles.Error.Render("ジョブの処理に失敗しました。")
	case track.OutcomeCancelled:
		return m.styles.Warning.Render("ジョブをキャンセルしました。")
	case track.OutcomeSuccess:
		if m.result != nil {
			return m.styles.Success.Render(fmt.Sprintf("クイズを生成しました：%s（%d問）", m.result.Title, len(m.result.Questions)))
		}
		if m.resultErr != nil {
			return m.styles.Warning.Render(fmt.Sprintf("完了しましたが成果物の取得に失敗しました: %v", m.resultErr))
		}
		if m.controller.Family().FetchesResult() {
			return m.styles.Info.Render("成果物を取得しています...")
		}
		return m.styles.Success.Render("処理が完了しました。")
	default:
		return ""
	}
}

func (m *Model) helpLine() string {
	if m.controller.Family().Cancellable() && !m.state.IsTerminal {
		return "c: キャンセル  q: 終了"
	}
	return "q: 終了"
}

// Result は画面終了後に取得できた成果物を返します。
func (m *Model) Result() (*quiz.Quiz, error) {
	return m.result, m.resultErr
}

// FinalState は画面終了時点の派生状態を返します。
func (m *Model) FinalState() track.DerivedState {
	return m.state
}
