package track

import "testing"

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{7, "0:07"},
		{62, "1:02"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3723, "1:02:03"},
		{-5, "0:00"},
	}
	for _, tc := range cases {
		if got := FormatElapsed(tc.seconds); got != tc.want {
			t.Errorf("FormatElapsed(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatEstimate(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, ""},
		{-1, ""},
		{45, "残り 約45秒"},
		{60, "残り 約1分"},
		{150, "残り 約2分30秒"},
	}
	for _, tc := range cases {
		if got := FormatEstimate(tc.seconds); got != tc.want {
			t.Errorf("FormatEstimate(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
