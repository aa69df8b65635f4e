package chat

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestParseFarmerID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"7", 7, false},
		{" 42 ", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"7.5", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := parseFarmerID(tc.in)
		if tc.wantErr {
			if !errors.Is(err, errBadFarmerID) {
				t.Errorf("parseFarmerID(%q) err = %v, want errBadFarmerID", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("parseFarmerID(%q) = %d, %v, want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestParseReadings(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]float64
	}{
		{"moisture:12, temp:30", map[string]float64{"moisture": 12, "temp": 30}},
		{"moisture:12,badpair", map[string]float64{"moisture": 12}},
		{"moisture:wet", map[string]float64{}},
		{":12", map[string]float64{}},
		{"", map[string]float64{}},
		{"ph : 6.8", map[string]float64{"ph": 6.8}},
	}
	for _, tc := range tests {
		got := parseReadings(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("parseReadings(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for k, v := range tc.want {
			if got[k] != v {
				t.Errorf("parseReadings(%q)[%s] = %v, want %v", tc.in, k, got[k], v)
			}
		}
	}
}

// Property: every well-formed pair survives a parse round trip, regardless
// of surrounding whitespace.
func TestParseReadingsRoundTrip(t *testing.T) {
	keyGen := rapid.StringMatching(`[a-z]{1,8}`)
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "pairs")
		want := make(map[string]float64, n)
		var parts []string
		for i := 0; i < n; i++ {
			key := keyGen.Draw(t, "key")
			val := float64(rapid.IntRange(-100, 100).Draw(t, "val"))
			want[key] = val
			parts = append(parts, fmt.Sprintf(" %s : %v ", key, val))
		}
		got := parseReadings(strings.Join(parts, ","))
		if len(got) != len(want) {
			t.Fatalf("parsed %v, want %v", got, want)
		}
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("key %s = %v, want %v", k, got[k], v)
			}
		}
	})
}

func TestIsCancel(t *testing.T) {
	for _, in := range []string{"CANCEL", "cancel", " Cancel "} {
		if !isCancel(in) {
			t.Errorf("isCancel(%q) = false, want true", in)
		}
	}
	for _, in := range []string{"CANCELLED", "stop", ""} {
		if isCancel(in) {
			t.Errorf("isCancel(%q) = true, want false", in)
		}
	}
}
