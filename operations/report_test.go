package operations

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReporter(t *testing.T) {
	t.Parallel()

	def := Definition{ID: "declare", Version: semver.MustParse("1.0.0")}
	report := NewReport(def, "in", "out", errors.New("boom"))
	reporter := NewMemoryReporter()

	require.NoError(t, reporter.AddReport(genericReport(report)))

	got, err := reporter.GetReport(report.ID)
	require.NoError(t, err)
	assert.Equal(t, "boom", got.Err.Error())
	assert.Equal(t, "in", got.Input)

	_, err = reporter.GetReport("missing")
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestFileReporter_persists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "reports.json")
	def := Definition{ID: "deploy", Version: semver.MustParse("1.2.0")}

	r, err := NewFileReporter(path)
	require.NoError(t, err)
	report := NewReport(def, map[string]any{"salt": "0x1"}, "0xabc", nil)
	require.NoError(t, r.AddReport(genericReport(report)))

	loaded, err := NewFileReporter(path)
	require.NoError(t, err)
	reports, err := loaded.GetReports()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, report.ID, reports[0].ID)
	assert.Equal(t, "1.2.0", reports[0].Def.Version.String())
	assert.Equal(t, "0xabc", reports[0].Output)
}

func Test_typeReport(t *testing.T) {
	t.Parallel()

	generic := Report[any, any]{
		ID:     "id",
		Input:  map[string]any{"name": "token", "felts": []any{"0x1"}},
		Output: float64(3),
	}

	typed, ok := typeReport[structInput, int](generic)
	require.True(t, ok)
	assert.Equal(t, structInput{Name: "token", Felts: []string{"0x1"}}, typed.Input)
	assert.Equal(t, 3, typed.Output)

	_, ok = typeReport[int, int](generic)
	assert.False(t, ok)
}
