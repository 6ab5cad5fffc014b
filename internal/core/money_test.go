package core

import "testing"

func TestParseCurrencyInput(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{"$1.234.567", 1234567},
		{"150000", 150000},
		{" $ 20.000 CLP", 20000},
		{"-$500", -500},
		{"", 0},
		{"abc", 0},
		{"-", 0},
		{"1-2", 0},
		{"99999999999999999999999", 0},
	}
	for _, tc := range cases {
		if got := ParseCurrencyInput(tc.in); got != tc.out {
			t.Errorf("ParseCurrencyInput(%q) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestParseWholeAmount(t *testing.T) {
	if v, err := ParseWholeAmount("$12.500"); err != nil || v != 12500 {
		t.Fatalf("expected 12500, got %d (err=%v)", v, err)
	}
	for _, in := range []string{"", "0", "-5", "x"} {
		if _, err := ParseWholeAmount(in); err == nil {
			t.Errorf("ParseWholeAmount(%q) expected error", in)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{1234567, "$1.234.567"},
		{150000, "$150.000"},
		{0, "$0"},
		{-250000, "-$250.000"},
	}
	for _, tc := range cases {
		if got := FormatCurrency(tc.in); got != tc.out {
			t.Errorf("FormatCurrency(%d) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestFormatterEnglish(t *testing.T) {
	f, err := NewFormatter("en-US", "US$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.Format(1234567); got != "US$1,234,567" {
		t.Fatalf("got %q", got)
	}
	if _, err := NewFormatter("not a locale!!", "$"); err == nil {
		t.Fatal("expected error for malformed locale")
	}
}
