package normalize

import "testing"

func TestToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Actuator", "actuator"},
		{"surrounding whitespace", "  Servo Motor \t", "servo motor"},
		{"zero width space", "\u200bsensor\u200b", "sensor"},
		{"bom prefix", "\ufeffencoder", "encoder"},
		{"interior zero width", "pu\u200bmp", "pump"},
		{"inner whitespace kept", "linear guide", "linear guide"},
		{"empty", "", ""},
		{"only invisibles", " \u200b\ufeff ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Token(tt.in); got != tt.want {
				t.Errorf("Token(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeywordPreservesCase(t *testing.T) {
	if got := Keyword("  PLC Module \u200b"); got != "PLC Module" {
		t.Errorf("Keyword() = %q, want %q", got, "PLC Module")
	}
}

func TestFileStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AC/DC converter", "AC_DC converter"},
		{"ベアリング", "ベアリング"},
		{" servo/drive/unit ", "servo_drive_unit"},
		{"plain keyword", "plain keyword"},
	}
	for _, tt := range tests {
		if got := FileStem(tt.in); got != tt.want {
			t.Errorf("FileStem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
