package postprocess

import "testing"

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-05", "2024-01-05", true},
		{"03/15/2024", "2024-03-15", true},
		{"3/5/2024", "2024-03-05", true},
		{"01/02/2024", "2024-01-02", true}, // ambiguous, US order wins
		{"15/03/2024", "2024-03-15", true}, // month 15 impossible, day-first
		{"March 15, 2024", "2024-03-15", true},
		{"Mar 15, 2024", "2024-03-15", true},
		{"15 March 2024", "2024-03-15", true},
		{"15 Mar 2024", "2024-03-15", true},
		{"2024/01/05", "2024-01-05", true},
		{"05-01-2024", "2024-01-05", true},
		{"  2024-01-05  ", "2024-01-05", true},
		{"not a date", "", false},
		{"", "", false},
		{"2024-13-40", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDate(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeDate(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
