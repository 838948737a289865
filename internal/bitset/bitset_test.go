package bitset

import (
	"strings"
	"testing"
)

var parsingTests = []string{
	"11111", "00000", "10101", "10000", "00001", "",
	strings.Repeat("10", 40),
}

func TestParsing(t *testing.T) {
	for _, s := range parsingTests {
		bs, err := FromString(s)
		if err != nil {
			t.Fatalf("FromString(%q) returned error %v", s, err)
		}
		if actual := bs.String(); actual != s {
			t.Errorf("FromString(%q).String() = %q, expected %q", s, actual, s)
		}
		if bs.Len() != len(s) {
			t.Errorf("FromString(%q).Len() = %d, expected %d", s, bs.Len(), len(s))
		}
	}
}

func TestParsingRejectsInvalidSymbols(t *testing.T) {
	if _, err := FromString("10x1"); err == nil {
		t.Fatal("expected invalid character error")
	}
}

func TestModification(t *testing.T) {
	cases := []struct {
		input    string
		op       string
		index    int
		expected string
	}{
		{"11111", "clear", 1, "10111"},
		{"11001", "set", 2, "11101"},
		{"11001", "flip", 0, "01001"},
		{"11001", "flip", 2, "11101"},
	}
	for _, tc := range cases {
		bs := mustFromString(t, tc.input)
		switch tc.op {
		case "set":
			bs.Set(tc.index)
		case "clear":
			bs.Clear(tc.index)
		case "flip":
			bs.Flip(tc.index)
		}
		if actual := bs.String(); actual != tc.expected {
			t.Errorf("%s(%q, %d) = %q, expected %q", tc.op, tc.input, tc.index, actual, tc.expected)
		}
	}
}

func TestCount(t *testing.T) {
	cases := map[string]int{
		"0000":                    0,
		"1111":                    4,
		"1010":                    2,
		strings.Repeat("1", 64):   64,
		strings.Repeat("1", 65):   65,
		strings.Repeat("01", 100): 100,
	}
	for input, want := range cases {
		if got := mustFromString(t, input).Count(); got != want {
			t.Errorf("Count(%q) = %d, expected %d", input, got, want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	src := mustFromString(t, "1100")
	dup := src.Clone()
	dup.Set(3)
	if src.String() != "1100" {
		t.Fatalf("clone mutated source: %s", src)
	}
	if dup.String() != "1101" {
		t.Fatalf("unexpected clone: %s", dup)
	}
}

func TestSplice(t *testing.T) {
	zeros := strings.Repeat("0", 130)
	ones := strings.Repeat("1", 130)
	a := mustFromString(t, zeros)
	b := mustFromString(t, ones)
	for _, cut := range []int{0, 1, 63, 64, 65, 127, 128, 129, 130} {
		got := a.Splice(b, cut).String()
		want := zeros[:cut] + ones[cut:]
		if got != want {
			t.Fatalf("Splice cut=%d = %q, expected %q", cut, got, want)
		}
	}
}

func mustFromString(t *testing.T, s string) BitSet {
	t.Helper()
	b, err := FromString(s)
	if err != nil {
		t.Fatalf("from string %q: %v", s, err)
	}
	return b
}
