package main

import "testing"

func TestParseTones(t *testing.T) {
	got, err := parseTones(" 220, 440 ")
	if err != nil || len(got) != 2 || got[0] != 220 || got[1] != 440 {
		t.Fatalf("parseTones = %v, %v", got, err)
	}
	if got, err := parseTones(""); err != nil || got != nil {
		t.Fatalf("empty = %v, %v", got, err)
	}
	for _, bad := range []string{"abc", "440,-1", "0"} {
		if _, err := parseTones(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
