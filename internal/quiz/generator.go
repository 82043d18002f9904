package quiz

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"

	"github.com/yourusername/quiz-forge/internal/document"
)

// Generator はチャンク本文から設問を組み立てます。
// 現状は決定的なルールベース実装です。
// TODO: 外部LLMバックエンドへの差し替え（生成品質の向上）
type Generator struct{}

// NewGenerator は Generator を作成します。
func NewGenerator() *Generator {
	return &Generator{}
}

// minSentenceRunes より短い文は設問の素材にしません。
const minSentenceRunes = 12

// QuestionsForChunk は1チャンクから最大 want 問を生成します。
// 素材になる文が足りない場合は少ない問数を返します。
func (g *Generator) QuestionsForChunk(chunk document.Chunk, want int) []Question {
	if want <= 0 {
		want = DefaultQuestionsPerChunk
	}

	sentences := usableSentences(chunk.Text)
	if len(sentences) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(int64(chunk.Index) + 1))
	questions := make([]Question, 0, want)
	for i := 0; i < len(sentences) && len(questions) < want; i++ {
		var q *Question
		if i%2 == 0 {
			q = g.blankQuestion(chunk, sentences, i, rng)
		} else {
			q = g.trueFalseQuestion(chunk, sentences, i, rng)
		}
		if q != nil {
			questions = append(questions, *q)
		}
	}
	return questions
}

// blankQuestion は文中のキーワードを空欄にした択一問題を作ります。
func (g *Generator) blankQuestion(chunk document.Chunk, sentences []string, idx int, rng *rand.Rand) *Question {
	sentence := sentences[idx]
	keyword := longestToken(sentence)
	if keyword == "" {
		return nil
	}

	options := []string{keyword}
	for _, other := range sentences {
		if len(options) >= 4 {
			break
		}
		if other == sentence {
			continue
		}
		decoy := longestToken(other)
		if decoy != "" && decoy != keyword && !contains(options, decoy) {
			options = append(options, decoy)
		}
	}
	if len(options) < 2 {
		return nil
	}

	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	answer := indexOf(options, keyword)

	return &Question{
		ID:          fmt.Sprintf("q-%d-%d", chunk.Index, idx),
		Type:        QuestionMCQSingle,
		Prompt:      fmt.Sprintf("空欄に当てはまる語句を選んでください：%s", strings.Replace(sentence, keyword, "____", 1)),
		Options:     options,
		AnswerIndex: answer,
		SourceChunk: chunk.Index,
	}
}

// trueFalseQuestion は本文の記述をそのまま、または語句を差し替えて
// 正誤問題にします。差し替えた場合の正解は「誤り」です。
func (g *Generator) trueFalseQuestion(chunk document.Chunk, sentences []string, idx int, rng *rand.Rand) *Question {
	statement := sentences[idx]
	answer := 0 // 正しい

	if (chunk.Index+idx)%2 == 1 {
		keyword := longestToken(statement)
		decoy := ""
		for _, other := range sentences {
			if other == statement {
				continue
			}
			if candidate := longestToken(other); candidate != "" && candidate != keyword {
				decoy = candidate
				break
			}
		}
		if keyword != "" && decoy != "" {
			statement = strings.Replace(statement, keyword, decoy, 1)
			answer = 1 // 誤り
		}
	}

	return &Question{
		ID:          fmt.Sprintf("q-%d-%d", chunk.Index, idx),
		Type:        QuestionTrueFalse,
		Prompt:      fmt.Sprintf("次の記述は正しいですか：%s", strings.TrimSpace(statement)),
		Options:     []string{"正しい", "誤り"},
		AnswerIndex: answer,
		SourceChunk: chunk.Index,
	}
}

func usableSentences(text string) []string {
	var usable []string
	for _, sentence := range document.Sentences(text) {
		trimmed := strings.TrimSpace(sentence)
		if len([]rune(trimmed)) >= minSentenceRunes {
			usable = append(usable, trimmed)
		}
	}
	return usable
}

// longestToken は文中で最も長い語を返します。分かち書きの無い日本語文でも
// 語を取り出せるよう、漢字・カタカナ・英数字の連続を語として扱います。
// ひらがなは助詞・活用語尾が多いため語の区切りとして扱います。
func longestToken(sentence string) string {
	var best, current []rune
	flush := func() {
		if len(current) > len(best) {
			best = append(best[:0], current...)
		}
		current = current[:0]
	}
	for _, r := range sentence {
		if isKeywordRune(r) {
			current = append(current, r)
		} else {
			flush()
		}
	}
	flush()
	if len(best) < 2 {
		return ""
	}
	return string(best)
}

func isKeywordRune(r rune) bool {
	// 長音記号はカタカナ語の一部として扱う
	if r == 'ー' || unicode.In(r, unicode.Han, unicode.Katakana) {
		return true
	}
	if r <= unicode.MaxASCII {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
	return false
}

func contains(list []string, target string) bool {
	return indexOf(list, target) >= 0
}

func indexOf(list []string, target string) int {
	for i, item := range list {
		if item == target {
			return i
		}
	}
	return -1
}
