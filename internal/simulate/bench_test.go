package simulate

import (
	"context"
	"testing"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/event"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

const benchWorkflow = `
on:
  push:
    branches: [main, 'release/**']
    paths: ['**/*.go']
env:
  MODE: ci
jobs:
  lint:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: golangci-lint run
  test:
    needs: lint
    runs-on: ${{ matrix.os }}
    strategy:
      matrix:
        os: [ubuntu-latest, windows-latest, macos-latest]
        go: ['1.22', '1.23']
        include:
          - os: ubuntu-latest
            race: true
    outputs:
      cover: ${{ matrix.os }}-${{ matrix.go }}
    steps:
      - uses: actions/setup-go@v5
        with:
          go-version: ${{ matrix.go }}
      - run: go test ${{ matrix.race && '-race' || '' }} ./...
      - if: failure()
        run: echo failed on ${{ runner.os }}
  deploy:
    needs: [test]
    if: github.ref == 'refs/heads/main'
    steps:
      - run: ./deploy.sh ${{ env.MODE }} ${{ needs.test.outputs.cover }}
`

func benchSetup(b *testing.B) (*workflow.Workflow, event.Event) {
	b.Helper()
	wf, err := workflow.Parse([]byte(benchWorkflow))
	if err != nil {
		b.Fatal(err)
	}
	return wf, event.Event{Event: event.Push, Branch: "main", Files: []string{"cmd/main.go"}}
}

func BenchmarkRun(b *testing.B) {
	wf, ev := benchSetup(b)
	e := NewEngine()
	for b.Loop() {
		if _, err := e.Run(ev, ".github/workflows/ci.yml", wf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMarshalModel(b *testing.B) {
	wf, ev := benchSetup(b)
	m, err := NewEngine().Run(ev, "", wf)
	if err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		if _, err := m.MarshalJSON(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRunAll(b *testing.B) {
	wf, ev := benchSetup(b)
	events := []event.Event{ev, ev, ev, ev, ev, ev, ev, ev}
	for b.Loop() {
		if _, err := RunAll(context.Background(), events, "", wf); err != nil {
			b.Fatal(err)
		}
	}
}
