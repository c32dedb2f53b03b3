package report

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateField_RuneSafe(t *testing.T) {
	// Multi-byte labels must never be cut mid-rune.
	in := strings.Repeat("ü", 30)
	got := truncateField(in, 24)

	if !utf8.ValidString(got) {
		t.Errorf("truncated field is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 24 {
		t.Errorf("truncated field is %d runes, want 24: %q", n, got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated field missing ellipsis: %q", got)
	}
}

func TestTruncateField_ShortInputUnchanged(t *testing.T) {
	if got := truncateField("CS-AWS-S3-001", 24); got != "CS-AWS-S3-001" {
		t.Errorf("short field must pass through unchanged, got %q", got)
	}
}

func TestShortenMessage_RuneSafe(t *testing.T) {
	in := strings.Repeat("é", 60)
	got := shortenMessage(in, 55)

	if !utf8.ValidString(got) {
		t.Errorf("shortened message is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 55 {
		t.Errorf("shortened message is %d runes, want 55: %q", n, got)
	}
}
