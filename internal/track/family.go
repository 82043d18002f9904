// Package track は長時間ジョブの進捗追跡エンジンを提供します。
// 一定間隔でステータスAPIをポーリングし、UI向けの派生状態を再計算します。
package track

// Status はバックエンドが報告するジョブのライフサイクル状態です。
type Status string

const (
	// ドキュメント処理ファミリー
	StatusUploaded   Status = "UPLOADED"
	StatusProcessed  Status = "PROCESSED"

	// クイズ生成ファミリー
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"

	// 両ファミリー共通
	StatusProcessing Status = "PROCESSING"
	StatusFailed     Status = "FAILED"
)

// Outcome は終端状態の種別です。終端でない場合は OutcomeNone になります。
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
	OutcomeCancelled
)

// Family はジョブファミリーごとの差分（終端集合・キャンセル可否・
// 成果物取得の有無・表示ラベル）をまとめた戦略オブジェクトです。
// Poller / Reconciler / Controller はファミリーに依存せず共通です。
type Family struct {
	name          string
	cancellable   bool
	fetchesResult bool
	initialStatus Status
	outcomes      map[Status]Outcome
	labels        map[Status]string
}

// DocumentFamily はドキュメント処理ジョブのファミリーです。
// キャンセル操作はバックエンドに存在せず、成果物の個別取得も不要です。
var DocumentFamily = Family{
	name:          "document",
	initialStatus: StatusUploaded,
	outcomes: map[Status]Outcome{
		StatusUploaded:   OutcomeNone,
		StatusProcessing: OutcomeNone,
		StatusProcessed:  OutcomeSuccess,
		StatusFailed:     OutcomeFailure,
	},
	labels: map[Status]string{
		StatusUploaded:   "アップロード完了",
		StatusProcessing: "処理中",
		StatusProcessed:  "処理完了",
		StatusFailed:     "処理失敗",
	},
}

// GenerationFamily はクイズ生成ジョブのファミリーです。
var GenerationFamily = Family{
	name:          "generation",
	cancellable:   true,
	fetchesResult: true,
	initialStatus: StatusPending,
	outcomes: map[Status]Outcome{
		StatusPending:    OutcomeNone,
		StatusProcessing: OutcomeNone,
		StatusCompleted:  OutcomeSuccess,
		StatusFailed:     OutcomeFailure,
		StatusCancelled:  OutcomeCancelled,
	},
	labels: map[Status]string{
		StatusPending:    "生成待ち",
		StatusProcessing: "生成中",
		StatusCompleted:  "生成完了",
		StatusFailed:     "生成失敗",
		StatusCancelled:  "キャンセル済み",
	},
}

// Name はファミリー名を返します。
func (f Family) Name() string {
	return f.name
}

// Cancellable はキャンセル操作をサポートするかを返します。
func (f Family) Cancellable() bool {
	return f.cancellable
}

// FetchesResult は成功終端後に成果物の取得が必要かを返します。
func (f Family) FetchesResult() bool {
	return f.fetchesResult
}

// Classify はステータスを終端種別に分類します。
// 未知のステータスは非終端（処理継続中）として扱います。バックエンドに
// 将来ステータスが追加されてもポーリングを打ち切らないためです。
func (f Family) Classify(status Status) Outcome {
	outcome, ok := f.outcomes[status]
	if !ok {
		return OutcomeNone
	}
	return outcome
}

// FamilyByName は名前からファミリーを引きます。
func FamilyByName(name string) (Family, bool) {
	switch name {
	case DocumentFamily.name:
		return DocumentFamily, true
	case GenerationFamily.name:
		return GenerationFamily, true
	default:
		return Family{}, false
	}
}

// Label はステータスの表示ラベルを返します。未知の値はそのまま返します。
func (f Family) Label(status Status) string {
	if label, ok := f.labels[status]; ok {
		return label
	}
	return string(status)
}
