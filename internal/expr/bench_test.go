package expr

import "testing"

func BenchmarkParse(b *testing.B) {
	src := "github.event_name == 'push' && (startsWith(github.ref, 'refs/tags/') || contains(fromJSON('[\"a\",\"b\"]'), matrix.os))"
	for b.Loop() {
		if _, err := Parse(src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEval(b *testing.B) {
	e, err := Parse("github.event_name == 'push' && matrix.node >= 18 && !cancelled()")
	if err != nil {
		b.Fatal(err)
	}
	ctx := testContext()
	for b.Loop() {
		if _, err := e.Eval(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInterpolate(b *testing.B) {
	ctx := testContext()
	for b.Loop() {
		if _, err := Interpolate("build-${{ matrix.os }}-node${{ matrix.node }}-${{ env.MODE }}", ctx); err != nil {
			b.Fatal(err)
		}
	}
}
