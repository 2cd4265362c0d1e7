package utils

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"en":    "en",
		"IT":    "it",
		"es":    "es",
		"it-IT": "it",
		"en_US": "en",
		"fr":    "en",
		"":      "en",
		"  de ": "en",
	}
	for in, want := range cases {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
