package track

// DerivedState はUIが参照する派生状態です。フィールド単位で書き換えず、
// 常に丸ごと差し替えます。
type DerivedState struct {
	LastSnapshot   *Snapshot
	ElapsedSeconds int
	Percentage     int
	StageLabel     string
	IsTerminal     bool
	Outcome        Outcome
	// CallbackFired は終端コールバックを発火済みかを示します。
	// 終端後に遅延スナップショットが届いても二重発火させないための印です。
	CallbackFired bool
}

// IntentKind は再計算で生じる副作用の種別です。
type IntentKind int

const (
	IntentCompleted IntentKind = iota
	IntentFailed
	IntentCancelled
)

// Intent は再計算1回あたり高々1つ生じる副作用の指示です。
type Intent struct {
	Kind     IntentKind
	ResultID string
	Message  string
}

// Reconcile は (直前の派生状態, 新しいスナップショット) から次の派生状態を
// 純粋に計算します。終端への遷移を初めて観測したときに限り、終端種別に
// 対応する Intent を1つ返します。既に終端であれば Intent は返しません。
// ElapsedSeconds はここでは計算せず、直前の値を引き継ぎます。
func Reconcile(family Family, prev DerivedState, snapshot *Snapshot) (DerivedState, *Intent) {
	if snapshot == nil {
		return prev, nil
	}
	if prev.IsTerminal {
		// 終端後の遅延スナップショットは状態を変えない
		return prev, nil
	}

	outcome := family.Classify(snapshot.Status)

	next := DerivedState{
		LastSnapshot:   snapshot,
		ElapsedSeconds: prev.ElapsedSeconds,
		Percentage:     derivePercentage(prev, snapshot, outcome),
		StageLabel:     family.Label(snapshot.Status),
		IsTerminal:     outcome != OutcomeNone,
		Outcome:        outcome,
		CallbackFired:  prev.CallbackFired,
	}

	if !next.IsTerminal {
		return next, nil
	}

	next.CallbackFired = true
	switch outcome {
	case OutcomeSuccess:
		return next, &Intent{Kind: IntentCompleted, ResultID: snapshot.ResultID}
	case OutcomeFailure:
		return next, &Intent{Kind: IntentFailed, Message: failureMessage(snapshot)}
	default:
		return next, &Intent{Kind: IntentCancelled}
	}
}

// derivePercentage は進捗カウンターから百分率を導出します。
// カウンター欠落時は非終端なら直前値を維持し、成功終端なら100にします。
// 失敗・キャンセル終端では直前値を維持します（百分率は単調非減少）。
func derivePercentage(prev DerivedState, snapshot *Snapshot, outcome Outcome) int {
	if p := snapshot.Progress; p != nil && p.TotalUnits > 0 {
		percent := p.ProcessedUnits * 100 / p.TotalUnits
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		return percent
	}
	if outcome == OutcomeSuccess {
		return 100
	}
	return prev.Percentage
}

func failureMessage(snapshot *Snapshot) string {
	if snapshot.ErrorDetail != "" {
		return snapshot.ErrorDetail
	}
	if snapshot.Message != "" {
		return snapshot.Message
	}
	return "ジョブの処理に失敗しました。"
}
