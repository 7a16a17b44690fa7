package dbqflag

import (
	"reflect"
	"testing"
)

func TestSplitFlagTokens(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{name: "empty", value: "", want: nil},
		{name: "single", value: "DFO", want: []string{"DFO"}},
		{name: "several", value: "DFO;LESPB", want: []string{"DFO", "LESPB"}},
		{name: "spaces and empty parts", value: " DFO ; ;LESPB;", want: []string{"DFO", "LESPB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitFlagTokens(tt.value)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitFlagTokens(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestHasFlagToken(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		code  string
		want  bool
	}{
		{name: "nil field", value: nil, code: "DFO", want: false},
		{name: "exact", value: "DFO", code: "DFO", want: true},
		{name: "among others", value: "LESPB;DFO", code: "DFO", want: true},
		{name: "substring is not a token", value: "DFOX", code: "DFO", want: false},
		{name: "longer code containing shorter", value: "NSBPLE", code: "NSPLE", want: false},
		{name: "bytes", value: []byte("DFO;ONBM"), code: "ONBM", want: true},
		{name: "case sensitive", value: "dfo", code: "DFO", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasFlagToken(tt.value, tt.code); got != tt.want {
				t.Errorf("HasFlagToken(%v, %q) = %v, want %v", tt.value, tt.code, got, tt.want)
			}
		})
	}
}

func TestAppendFlagToken(t *testing.T) {
	tests := []struct {
		existing string
		code     string
		want     string
	}{
		{existing: "", code: "LESPB", want: "LESPB"},
		{existing: "  ", code: "LESPB", want: "LESPB"},
		{existing: "DFO", code: "LESPC", want: "DFO;LESPC"},
		{existing: "DFO;LESPC", code: "LESPC", want: "DFO;LESPC"},
		{existing: "LESPC;DFO", code: "ONBM", want: "LESPC;DFO;ONBM"},
	}

	for _, tt := range tests {
		if got := AppendFlagToken(tt.existing, tt.code); got != tt.want {
			t.Errorf("AppendFlagToken(%q, %q) = %q, want %q", tt.existing, tt.code, got, tt.want)
		}
	}
}
