package quiz

import "time"

// QuestionType は設問の形式です。
type QuestionType string

const (
	QuestionMCQSingle QuestionType = "MCQ_SINGLE"
	QuestionTrueFalse QuestionType = "TRUE_FALSE"
)

// Question は生成された設問です。選択式は Options と AnswerIndex を持ち、
// 正誤式は Options が「正しい」「誤り」の2択になります。
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Prompt      string       `json:"prompt"`
	Options     []string     `json:"options"`
	AnswerIndex int          `json:"answerIndex"`
	SourceChunk int          `json:"sourceChunk"`
}

// Quiz は生成済みクイズです。クイズ生成ジョブの成果物として、
// 成功終端後に resultId で取得されます。
type Quiz struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	DocumentID string     `json:"documentId"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// GenerationParams はクイズ生成ジョブの入力です。
type GenerationParams struct {
	DocumentID        string `json:"documentId"`
	Title             string `json:"title"`
	QuestionsPerChunk int    `json:"questionsPerChunk"`
}

// DefaultQuestionsPerChunk は1チャンクから生成する設問数の既定値です。
const DefaultQuestionsPerChunk = 2
