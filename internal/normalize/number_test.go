package normalize

import (
	"testing"
)

func TestParseMagnitude(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12.5万", 125000},
		{"3亿", 300000000},
		{"1.2亿", 120000000},
		{"2.3万", 23000},
		{"万", 0},
		{"1234", 1234},
		{"1,234", 1234},
		{"123.0", 123},
		{"转发 8290", 8290},
		{"评论 1.2万", 12000},
		{"赞", 0},
		{"  56万 ", 560000},
		{"", 0},
		{"转发", 0},
		{"abc", 0},
	}

	for _, tc := range cases {
		if got := ParseMagnitude(tc.in); got != tc.want {
			t.Errorf("ParseMagnitude(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestExtractDigits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1234567", 1234567},
		{"爆 1234567", 1234567},
		{"热 12 34", 1234},
		{"no digits here", 0},
		{"", 0},
		{"剧集 4951060", 4951060},
	}

	for _, tc := range cases {
		if got := ExtractDigits(tc.in); got != tc.want {
			t.Errorf("ExtractDigits(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
