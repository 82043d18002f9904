package track

import "fmt"

// FormatElapsed は経過秒数を "m:ss"（1時間以上は "h:mm:ss"）に整形します。
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatEstimate は推定残り秒数を "残り 約m分s秒" の形に整形します。
// 推定値が無い（0以下の）場合は空文字を返します。
func FormatEstimate(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	if seconds < 60 {
		return fmt.Sprintf("残り 約%d秒", seconds)
	}
	m := seconds / 60
	s := seconds % 60
	if s == 0 {
		return fmt.Sprintf("残り 約%d分", m)
	}
	return fmt.Sprintf("残り 約%d分%d秒", m, s)
}
