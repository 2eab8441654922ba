package main

import "testing"

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":             "****",
		"abcd":         "****",
		"AIzaSy123456": "********3456",
	}
	for in, want := range cases {
		if got := mask(in); got != want {
			t.Fatalf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeySetRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	rootCmd.SetArgs([]string{"key", "set"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for missing key")
	}
}
