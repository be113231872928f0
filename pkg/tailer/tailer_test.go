package tailer

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leptonai/harvester/pkg/notify"
)

func appendTo(t *testing.T, fs afero.Fs, path string, data string) {
	t.Helper()
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/logs", 0o755))
	return fs
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		policy FilterPolicy
		want   []string
	}{
		{name: "short drops blank lines", data: "hello\nworld\n\n", policy: FilterShort, want: []string{"hello", "world"}},
		{name: "none keeps blank lines", data: "hello\nworld\n\n", policy: FilterNone, want: []string{"hello", "world", ""}},
		{name: "short drops single characters", data: "a\nbb\n\r\n", policy: FilterShort, want: []string{"bb"}},
		{name: "short keeps two byte lines", data: "x\r\n", policy: FilterShort, want: []string{"x\r"}},
		{name: "partial trailing line", data: "one\ntw", policy: FilterShort, want: []string{"one", "tw"}},
		{name: "short counts characters not bytes", data: "é\n→\nab\n", policy: FilterShort, want: []string{"ab"}},
		{name: "short keeps two multi-byte characters", data: "日本\n", policy: FilterShort, want: []string{"日本"}},
		{name: "empty input", data: "", policy: FilterNone, want: nil},
		{name: "only newline with none", data: "\n", policy: FilterNone, want: []string{""}},
		{name: "only newline with short", data: "\n", policy: FilterShort, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLines(tt.data, tt.policy))
		})
	}
}

func TestParsePolicies(t *testing.T) {
	rp, err := ParseRenamePolicy("")
	require.NoError(t, err)
	assert.Equal(t, RenameAdvance, rp)

	rp, err = ParseRenamePolicy("keep")
	require.NoError(t, err)
	assert.Equal(t, RenameKeep, rp)

	_, err = ParseRenamePolicy("rewind")
	assert.Error(t, err)

	fp, err := ParseFilterPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FilterShort, fp)

	fp, err = ParseFilterPolicy("none")
	require.NoError(t, err)
	assert.Equal(t, FilterNone, fp)

	_, err = ParseFilterPolicy("all")
	assert.Error(t, err)

	_, err = New(newFs(t), "/logs/x.log", WithFilterPolicy("bogus"))
	assert.Error(t, err)
}

func TestNewStartsAtCurrentSize(t *testing.T) {
	fs := newFs(t)
	appendTo(t, fs, "/logs/app.log", "backlog line 1\nbacklog line 2\n")

	tl, err := New(fs, "/logs/app.log")
	require.NoError(t, err)
	assert.Equal(t, "app.log", tl.Name())
	assert.Equal(t, "/logs/app.log", tl.Path())
	assert.Equal(t, int64(30), tl.Offset())

	// a modify without new bytes never delivers the backlog
	res, err := tl.Handle(notify.Modified)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, res.Lines)

	appendTo(t, fs, "/logs/app.log", "fresh\n")
	res, err = tl.Handle(notify.Modified)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, res.Lines)
	assert.Equal(t, int64(36), tl.Offset())
}

func TestNewErrors(t *testing.T) {
	fs := newFs(t)

	_, err := New(fs, "/logs/missing.log")
	require.ErrorIs(t, err, ErrStat)

	_, err = New(fs, "/logs")
	require.ErrorIs(t, err, ErrIsDirectory)
}

func TestModifiedScenario(t *testing.T) {
	fs := newFs(t)
	appendTo(t, fs, "/logs/app.log", "")

	tl, err := New(fs, "/logs/app.log")
	require.NoError(t, err)
	assert.Equal(t, int64(0), tl.Offset())

	appendTo(t, fs, "/logs/app.log", "one\ntwo\nthree\n")

	res, err := tl.Handle(notify.Modified)
	require.NoError(t, err)
	assert.Equal(t, Result{
		Name:     "app.log",
		Lines:    []string{"one", "two", "three"},
		From:     0,
		To:       14,
		Advanced: true,
	}, res)
	assert.Equal(t, int64(14), tl.Offset())

	// duplicate notification for the same size is stale
	res, err = tl.Handle(notify.Modified)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int64(14), tl.Offset())
}

func TestOffsetMonotonic(t *testing.T) {
	fs := newFs(t)
	appendTo(t, fs, "/logs/app.log", "")

	tl, err := New(fs, "/logs/app.log")
	require.NoError(t, err)

	prev := tl.Offset()
	for i, chunk := range []string{"aa\n", "", "bbbb\ncc\n", "", "", "dd\n"} {
		appendTo(t, fs, "/logs/app.log", chunk)
		_, err := tl.Handle(notify.Modified)
		require.NoError(t, err, "event %d", i)
		assert.GreaterOrEqual(t, tl.Offset(), prev)
		prev = tl.Offset()
	}
	assert.Equal(t, int64(14), tl.Offset())
}

func TestRenamePolicies(t *testing.T) {
	t.Run("advance", func(t *testing.T) {
		fs := newFs(t)
		appendTo(t, fs, "/logs/app.log", "")
		tl, err := New(fs, "/logs/app.log", WithRenamePolicy(RenameAdvance))
		require.NoError(t, err)

		appendTo(t, fs, "/logs/app.log", "first\n")
		res, err := tl.Handle(notify.Renamed)
		require.NoError(t, err)
		assert.Equal(t, []string{"first"}, res.Lines)
		assert.True(t, res.Advanced)
		assert.Equal(t, int64(6), tl.Offset())

		appendTo(t, fs, "/logs/app.log", "second\n")
		res, err = tl.Handle(notify.Modified)
		require.NoError(t, err)
		assert.Equal(t, []string{"second"}, res.Lines)
	})

	t.Run("keep delivers the range again on the next modify", func(t *testing.T) {
		fs := newFs(t)
		appendTo(t, fs, "/logs/app.log", "")
		tl, err := New(fs, "/logs/app.log", WithRenamePolicy(RenameKeep))
		require.NoError(t, err)

		appendTo(t, fs, "/logs/app.log", "first\n")
		res, err := tl.Handle(notify.Renamed)
		require.NoError(t, err)
		assert.Equal(t, []string{"first"}, res.Lines)
		assert.False(t, res.Advanced)
		assert.Equal(t, int64(0), tl.Offset())

		appendTo(t, fs, "/logs/app.log", "second\n")
		res, err = tl.Handle(notify.Modified)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, res.Lines)
		assert.Equal(t, int64(13), tl.Offset())
	})
}

func TestHandleErrors(t *testing.T) {
	fs := newFs(t)
	appendTo(t, fs, "/logs/app.log", "x\n")
	tl, err := New(fs, "/logs/app.log")
	require.NoError(t, err)

	_, err = tl.Handle(notify.Created)
	require.ErrorIs(t, err, ErrUnsupportedOp)

	require.NoError(t, fs.Remove("/logs/app.log"))
	res, err := tl.Handle(notify.Renamed)
	require.ErrorIs(t, err, ErrStat)
	assert.Equal(t, "app.log", res.Name)
	assert.Equal(t, int64(2), tl.Offset())
}
