package main_test

import (
	"os/exec"
	"testing"
)

// BenchmarkBinaryStartup measures process launch to exit for
// "actionsim version". The binary is built once before the timer starts.
func BenchmarkBinaryStartup(b *testing.B) {
	bin := buildBinary(b)
	b.ReportAllocs()
	for b.Loop() {
		if out, err := exec.Command(bin, "version").CombinedOutput(); err != nil {
			b.Fatalf("actionsim version failed: %v\n%s", err, out)
		}
	}
}
