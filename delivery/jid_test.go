package delivery

import "testing"

func TestNormalizeJID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain number", "15551234567", "15551234567@s.whatsapp.net"},
		{"short number", "55512", "55512@s.whatsapp.net"},
		{"hyphenated group id", "1234-5678", "1234-5678@g.us"},
		{"long numeric group id", "1234567890123456", "1234567890123456@g.us"},
		{"already qualified individual", "15551234567@s.whatsapp.net", "15551234567@s.whatsapp.net"},
		{"already qualified group", "123-456@g.us", "123-456@g.us"},
		{"qualified wins over group heuristic", "1234-5678@s.whatsapp.net", "1234-5678@s.whatsapp.net"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeJID(tt.in); got != tt.want {
				t.Errorf("NormalizeJID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIndividualJID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"15551234567", "15551234567@s.whatsapp.net"},
		{"1234567890123456", "1234567890123456@s.whatsapp.net"},
		{"15551234567@s.whatsapp.net", "15551234567@s.whatsapp.net"},
	}
	for _, tt := range tests {
		if got := NormalizeIndividualJID(tt.in); got != tt.want {
			t.Errorf("NormalizeIndividualJID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
