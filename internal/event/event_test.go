package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActions(t *testing.T) {
	t.Parallel()

	assert.Len(t, Actions(PullRequest), 14)
	assert.Len(t, Actions(Issues), 16)
	assert.Nil(t, Actions(Push))
	assert.Contains(t, Actions(PullRequest), "review_request_removed")
	assert.Contains(t, Actions(Issues), "demilestoned")

	// Mutating the returned slice must not leak back.
	a := Actions(Issues)
	a[0] = "mutated"
	assert.Equal(t, "opened", Actions(Issues)[0])
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		want Event
	}{
		{Push, Event{Event: Push, Branch: "master"}},
		{PullRequest, Event{Event: PullRequest, Branch: "feature-branch", Action: "opened"}},
		{Issues, Event{Event: Issues, Action: "closed"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			t.Parallel()
			got, ok := Default(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
			assert.Equal(t, tt.want, Event{Event: tt.kind}.WithDefaults())
		})
	}

	_, ok := Default("release")
	assert.False(t, ok)
}

func TestWithDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	ev := Event{Event: PullRequest, Branch: "main", Action: "closed"}.WithDefaults()
	assert.Equal(t, "main", ev.Branch)
	assert.Equal(t, "closed", ev.Action)

	unknown := Event{Event: "release"}
	assert.Equal(t, unknown, unknown.WithDefaults())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ev      Event
		wantErr string
	}{
		{"push", Event{Event: Push, Branch: "main", Files: []string{"a.go"}}, ""},
		{"push without branch", Event{Event: Push}, ""},
		{"pull_request", Event{Event: PullRequest, Branch: "main", Action: "synchronize"}, ""},
		{"issues", Event{Event: Issues, Action: "milestoned"}, ""},
		{"missing kind", Event{}, "event is required"},
		{"unknown kind", Event{Event: "release"}, `event "release" is not one of: push, pull_request, issues`},
		{"push with action", Event{Event: Push, Action: "opened"}, "action does not apply to push events"},
		{"issues with branch", Event{Event: Issues, Branch: "main", Action: "closed"}, "branch does not apply to issues events"},
		{"issues with files", Event{Event: Issues, Files: []string{"a"}, Action: "closed"}, "files does not apply to issues events"},
		{"pull_request without action", Event{Event: PullRequest}, ""},
		{"issues without action", Event{Event: Issues}, ""},
		{"wrong action", Event{Event: Issues, Action: "synchronize"}, `action "synchronize" is not valid for issues events`},
		{"empty file", Event{Event: Push, Files: []string{"a", ""}}, "files[1] is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.ev.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidEvent))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"event":"pull_request","branch":"main","files":["a.go"],"action":"opened"}`))
	require.NoError(t, err)
	assert.Equal(t, Event{Event: PullRequest, Branch: "main", Files: []string{"a.go"}, Action: "opened"}, ev)

	_, err = Decode([]byte(`{"event":"push","extra":1}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = Decode([]byte(`{"event":"issues","action":"bogus"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{"nil stays nil", nil, nil},
		{"cleared input", []string{""}, nil},
		{"blanks dropped and trimmed", []string{" a.go ", "", "  ", "b.go"}, []string{"a.go", "b.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := Event{Event: Push, Files: tt.files}.Normalize()
			assert.Equal(t, tt.want, ev.Files)
			assert.NoError(t, ev.Validate())
		})
	}
}

func TestDecode_DropsBlankFiles(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"event":"push","branch":"main","files":[""]}`))
	require.NoError(t, err)
	assert.Nil(t, ev.Files)
}

func TestParseFiles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"src/a.go", "docs/b.md"}, ParseFiles("src/a.go, docs/b.md"))
	assert.Equal(t, []string{"x"}, ParseFiles(" , x ,,"))
	assert.Nil(t, ParseFiles(""))
}

func TestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "push on main touching 2 files", Event{Event: Push, Branch: "main", Files: []string{"a", "b"}}.String())
	assert.Equal(t, "issues (closed)", Event{Event: Issues, Action: "closed"}.String())
	assert.Equal(t, "pull_request (opened) on dev touching 1 file",
		Event{Event: PullRequest, Branch: "dev", Action: "opened", Files: []string{"a"}}.String())
}
