package limits

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	testCases := []struct {
		name      string
		id        string
		expectErr bool
	}{
		{"Valid short", "abc", false},
		{"Valid mixed", "Alice42", false},
		{"Valid max length", strings.Repeat("a", MaxSessionIDLength), false},
		{"Empty", "", true},
		{"Too short", "ab", true},
		{"Too long", strings.Repeat("a", MaxSessionIDLength+1), true},
		{"Path separator", "a/b/c", true},
		{"Dot segment", "..abc", true},
		{"Hyphenated", "my-session", true},
		{"Whitespace", "my session", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSessionID(tc.id)
			if tc.expectErr && err == nil {
				t.Errorf("expected error for %q", tc.id)
			}
			if !tc.expectErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tc.id, err)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	if err := ValidatePhone("15551234567"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePhone("15551234567@s.whatsapp.net"); err != nil {
		t.Errorf("qualified JID should pass: %v", err)
	}
	if err := ValidatePhone(""); err == nil {
		t.Error("expected error for empty target")
	}
	if err := ValidatePhone("123"); err == nil {
		t.Error("expected error for too-short target")
	}
}

func TestValidateMessage(t *testing.T) {
	if err := ValidateMessage(strings.Repeat("x", MaxMessageLength)); err != nil {
		t.Errorf("max-length message should pass: %v", err)
	}
	if err := ValidateMessage(strings.Repeat("x", MaxMessageLength+1)); err == nil {
		t.Error("expected error for oversized message")
	}
	// An empty message is legal at this layer; payload shaping decides
	// whether the request carries any content at all.
	if err := ValidateMessage(""); err != nil {
		t.Errorf("empty message should pass: %v", err)
	}
}

func TestValidateBulkDelayMS(t *testing.T) {
	testCases := []struct {
		name      string
		delay     int
		expectErr bool
	}{
		{"Zero selects default", 0, false},
		{"Minimum", MinBulkDelayMS, false},
		{"Maximum", MaxBulkDelayMS, false},
		{"Below minimum", MinBulkDelayMS - 1, true},
		{"Above maximum", MaxBulkDelayMS + 1, true},
		{"Negative", -5, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBulkDelayMS(tc.delay)
			if tc.expectErr && err == nil {
				t.Errorf("expected error for %d", tc.delay)
			}
			if !tc.expectErr && err != nil {
				t.Errorf("unexpected error for %d: %v", tc.delay, err)
			}
		})
	}
}
