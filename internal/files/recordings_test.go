package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareRecordDirCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "recordings")

	got, err := PrepareRecordDir(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))

	stat, err := os.Stat(got)
	require.NoError(t, err)
	assert.True(t, stat.IsDir())

	entries, err := os.ReadDir(got)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrepareRecordDirRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := PrepareRecordDir(path)
	assert.Error(t, err)
}

func TestListRecordings(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "slot1-p1.ivf")
	audio := filepath.Join(dir, "slot1-p1.ogg")
	empty := filepath.Join(dir, "slot2-p2.ivf")
	require.NoError(t, os.WriteFile(video, make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(audio, make([]byte, 50), 0o644))
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	recs := ListRecordings([]string{audio, video, empty, filepath.Join(dir, "missing.ogg")})
	require.Len(t, recs, 2)
	assert.Equal(t, "slot1-p1.ivf", recs[0].Name)
	assert.Equal(t, "video/x-ivf", recs[0].Type)
	assert.Equal(t, "audio/ogg", recs[1].Type)
	assert.Equal(t, int64(150), TotalSize(recs))
}
