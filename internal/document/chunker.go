package document

import "strings"

// DefaultChunkChars は1チャンクあたりの最大文字数（rune数）の既定値です。
const DefaultChunkChars = 1200

// SplitChunks は本文を文の区切りを優先してチャンクへ分割します。
// 1チャンクは maxChars 文字以内で、区切りの無い長文は強制分割します。
func SplitChunks(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		trimmed := strings.TrimSpace(current.String())
		if trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current.Reset()
		currentLen = 0
	}

	for _, sentence := range Sentences(text) {
		runes := []rune(sentence)
		// 1文が上限を超える場合は上限幅で強制分割する
		for len(runes) > maxChars {
			flush()
			chunks = append(chunks, strings.TrimSpace(string(runes[:maxChars])))
			runes = runes[maxChars:]
		}
		if currentLen+len(runes) > maxChars {
			flush()
		}
		current.WriteString(string(runes))
		currentLen += len(runes)
	}
	flush()

	return chunks
}

// Sentences は文末記号と改行で本文を文単位に区切ります。
// 文末記号は直前の文に含めたまま返します。
func Sentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '。', '．', '！', '？', '.', '!', '?', '\n':
			if strings.TrimSpace(current.String()) != "" {
				sentences = append(sentences, current.String())
			}
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		sentences = append(sentences, current.String())
	}
	return sentences
}
