package quiz

import (
	"reflect"
	"testing"

	"github.com/yourusername/quiz-forge/internal/document"
)

const sampleChunk = "データベースは情報を体系的に保存する仕組みです。" +
	"インデックスは検索を高速化するための構造です。" +
	"トランザクションは一連の操作をまとめて扱う単位です。" +
	"レプリケーションは複数のサーバーへ複製する仕組みです。"

func TestQuestionsForChunkProducesRequestedCount(t *testing.T) {
	g := NewGenerator()
	chunk := document.Chunk{Index: 0, Text: sampleChunk}

	questions := g.QuestionsForChunk(chunk, 3)
	if len(questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(questions))
	}

	for _, q := range questions {
		if q.SourceChunk != 0 {
			t.Errorf("question %s sourceChunk = %d, want 0", q.ID, q.SourceChunk)
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			t.Errorf("question %s answerIndex %d out of range (%d options)", q.ID, q.AnswerIndex, len(q.Options))
		}
		switch q.Type {
		case QuestionMCQSingle:
			if len(q.Options) < 2 {
				t.Errorf("question %s has %d options, want >= 2", q.ID, len(q.Options))
			}
		case QuestionTrueFalse:
			if len(q.Options) != 2 {
				t.Errorf("question %s has %d options, want 2", q.ID, len(q.Options))
			}
		default:
			t.Errorf("question %s has unexpected type %q", q.ID, q.Type)
		}
	}
}

func TestQuestionsForChunkDeterministic(t *testing.T) {
	g := NewGenerator()
	chunk := document.Chunk{Index: 2, Text: sampleChunk}

	first := g.QuestionsForChunk(chunk, 4)
	second := g.QuestionsForChunk(chunk, 4)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("generation is not deterministic:\nfirst  = %#v\nsecond = %#v", first, second)
	}
}

func TestQuestionsForChunkEmptyText(t *testing.T) {
	g := NewGenerator()
	if questions := g.QuestionsForChunk(document.Chunk{Index: 0, Text: ""}, 2); len(questions) != 0 {
		t.Fatalf("questions = %#v, want none", questions)
	}
}

func TestQuestionsForChunkShortSentencesSkipped(t *testing.T) {
	g := NewGenerator()
	chunk := document.Chunk{Index: 0, Text: "短い。一言。"}
	if questions := g.QuestionsForChunk(chunk, 2); len(questions) != 0 {
		t.Fatalf("questions = %#v, want none for short sentences", questions)
	}
}

func TestQuestionsForChunkZeroWantUsesDefault(t *testing.T) {
	g := NewGenerator()
	chunk := document.Chunk{Index: 1, Text: sampleChunk}

	questions := g.QuestionsForChunk(chunk, 0)
	if len(questions) != DefaultQuestionsPerChunk {
		t.Fatalf("questions = %d, want %d", len(questions), DefaultQuestionsPerChunk)
	}
}

func TestBlankQuestionAnswerMatchesKeyword(t *testing.T) {
	g := NewGenerator()
	chunk := document.Chunk{Index: 0, Text: sampleChunk}

	questions := g.QuestionsForChunk(chunk, 4)
	for _, q := range questions {
		if q.Type != QuestionMCQSingle {
			continue
		}
		answer := q.Options[q.AnswerIndex]
		if answer == "" {
			t.Fatalf("question %s has empty answer", q.ID)
		}
	}
}
