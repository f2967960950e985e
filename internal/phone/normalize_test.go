package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"TrunkPrefix", "0821234567", "+27821234567"},
		{"AlreadyInternational", "+27821234567", "+27821234567"},
		{"NoPrefixAssumedDomestic", "821234567", "+27821234567"},
		{"InternalWhitespace", "082 123 4567", "+27821234567"},
		{"LeadingTrailingWhitespace", "  0821234567\t", "+27821234567"},
		{"ForeignInternationalUntouched", "+14155550100", "+14155550100"},
		{"Empty", "", ""},
		{"WhitespaceOnly", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw, "+27"); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
