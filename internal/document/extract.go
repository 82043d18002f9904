package document

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// extractPages はドキュメントからページ単位のテキストを取り出します。
// テキスト系は全体を1ページとして扱います。
func (s *Service) extractPages(ctx context.Context, doc *Document, storedPath string, reporter ProgressReporter) ([]string, error) {
	switch doc.Kind {
	case KindText:
		data, err := os.ReadFile(storedPath)
		if err != nil {
			return nil, newError("PROCESSING_FAILED", "ドキュメントの読み込みに失敗しました。", err)
		}
		report(reporter, 1, 1)
		return []string{string(data)}, nil
	case KindPDF:
		return s.extractPDFPages(ctx, doc, storedPath, reporter)
	default:
		return nil, newError("UNSUPPORTED_TYPE", "サポートされていないドキュメント種別です。", nil)
	}
}

func (s *Service) extractPDFPages(ctx context.Context, doc *Document, storedPath string, reporter ProgressReporter) ([]string, error) {
	contentDir := filepath.Join(s.workDir, doc.ID, "content")
	if err := os.MkdirAll(contentDir, 0o750); err != nil {
		return nil, newError("PROCESSING_FAILED", "作業領域の作成に失敗しました。", err)
	}
	defer func() {
		_ = os.RemoveAll(contentDir)
	}()

	if err := pdfapi.ExtractContentFile(storedPath, contentDir, nil, nil); err != nil {
		return nil, newError("PROCESSING_FAILED", "PDFの本文抽出に失敗しました。", err)
	}

	entries, err := os.ReadDir(contentDir)
	if err != nil {
		return nil, newError("PROCESSING_FAILED", "抽出結果の読み込みに失敗しました。", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	total := len(names)
	if total == 0 {
		total = 1
	}

	pages := make([]string, 0, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(contentDir, name))
		if err != nil {
			return nil, newError("PROCESSING_FAILED", "抽出結果の読み込みに失敗しました。", err)
		}
		pages = append(pages, textFromContentStream(data))
		report(reporter, i+1, total)
	}
	return pages, nil
}

// pdfTextLiteral はコンテンツストリーム中のテキスト描画オペランド
// （括弧リテラル）にマッチします。
var pdfTextLiteral = regexp.MustCompile(`\((?:\\.|[^\\()])*\)`)

var pdfEscapeReplacer = strings.NewReplacer(
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
	`\n`, "\n",
	`\r`, "",
	`\t`, " ",
)

// textFromContentStream はPDFコンテンツストリームからテキストリテラルを
// 拾い集めます。厳密なデコードではありませんが、クイズ生成の入力として
// 十分な精度の本文が得られます。
func textFromContentStream(data []byte) string {
	matches := pdfTextLiteral.FindAllString(string(data), -1)
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		text := pdfEscapeReplacer.Replace(strings.Trim(m, "()"))
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return collapseWhitespace(strings.Join(parts, " "))
}

var whitespaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func report(reporter ProgressReporter, processed, total int) {
	if reporter == nil {
		return
	}
	if processed < 0 {
		processed = 0
	}
	if total > 0 && processed > total {
		processed = total
	}
	reporter(processed, total)
}
