package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AlcoMonitorAPI/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func newTestRecorder(t *testing.T) (*Recorder, string) {
	t.Helper()
	dir := t.TempDir()
	rec, err := New(config.RecorderConfig{Enabled: true, Dir: dir, MaxBytes: 1 << 20, Backups: 2})
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return rec, dir
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "6.500000e+01", FormatValue("65"))
	assert.Equal(t, "-1.250000e-01", FormatValue(" -0.125 "))
	assert.Equal(t, "Разгон", FormatValue("Разгон"))
	assert.Equal(t, "", FormatValue(""))
}

func TestRecord_MainTopicFillsOwnColumn(t *testing.T) {
	rec, dir := newTestRecorder(t)
	at := time.Date(2024, 5, 1, 12, 30, 15, 250_000_000, time.UTC)

	require.NoError(t, rec.Record("term_k", "65", at))

	lines := readLines(t, filepath.Join(dir, MainLogName))
	require.Len(t, lines, 2)
	assert.Equal(t, utf8BOM+"Время;T царга;T куб;T дефлегматор;Мощность;Атм. давление;Флаг отбора", lines[0])
	assert.Equal(t, "2024-05-01 12:30:15.250;;6.500000e+01;;;;", lines[1])

	all := readLines(t, filepath.Join(dir, AllLogName))
	require.Len(t, all, 2)
	assert.Equal(t, utf8BOM+"Время;Топик;Значение", all[0])
	assert.Equal(t, "2024-05-01 12:30:15.250;term_k;6.500000e+01", all[1])
}

func TestRecord_OtherTopicOnlyInAllLog(t *testing.T) {
	rec, dir := newTestRecorder(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, rec.Record("otbor_t", "35", at))
	require.NoError(t, rec.Record("flag_otb", "Отбор тела", at))

	main := readLines(t, filepath.Join(dir, MainLogName))
	require.Len(t, main, 2)
	assert.Equal(t, "2024-05-01 12:00:00.000;;;;;;Отбор тела", main[1])

	all := readLines(t, filepath.Join(dir, AllLogName))
	require.Len(t, all, 3)
	assert.Equal(t, "2024-05-01 12:00:00.000;otbor_t;3.500000e+01", all[1])
}

func TestRecord_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.RecorderConfig{Enabled: true, Dir: dir, MaxBytes: 1 << 20, Backups: 1}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, rec.Record("term_c", "78.5", at))
	require.NoError(t, rec.Close())

	rec, err = New(cfg)
	require.NoError(t, err)
	require.NoError(t, rec.Record("term_c", "78.6", at))
	require.NoError(t, rec.Close())

	lines := readLines(t, filepath.Join(dir, MainLogName))
	assert.Len(t, lines, 3, "header is written once")
}

func TestRotatingFile_RotatesWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	f, err := OpenRotating(path, "h", 20, 2)
	require.NoError(t, err)
	defer f.Close()

	line := []byte("0123456789\n")
	for i := 0; i < 4; i++ {
		_, err := f.Write(line)
		require.NoError(t, err)
	}

	for _, name := range []string{path, path + ".1", path + ".2"} {
		data, err := os.ReadFile(name)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(string(data), utf8BOM+"h\n"), name)
	}
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err))
}

func TestRotatingFile_NoBackupsTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	f, err := OpenRotating(path, "h", 20, 0)
	require.NoError(t, err)
	defer f.Close()

	for i := 0; i < 3; i++ {
		_, err := f.Write([]byte("0123456789\n"))
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM+"h\n0123456789\n", string(data))
	_, err = os.Stat(path + ".1")
	assert.True(t, os.IsNotExist(err))
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	f, err := OpenRotating(filepath.Join(t.TempDir(), "x.csv"), "", 0, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
