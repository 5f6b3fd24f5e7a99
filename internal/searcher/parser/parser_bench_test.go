package parser

import "testing"

func BenchmarkParse(b *testing.B) {
	lines := []string{
		"-> 1 the cat",
		"<=> 2 the cat <=> o gato #50",
		":> 1 the * *",
		"~#> 1 42",
	}
	b.ReportAllocs()
	for b.Loop() {
		for _, l := range lines {
			if _, err := Parse(l, 50); err != nil {
				b.Fatal(err)
			}
		}
	}
}
