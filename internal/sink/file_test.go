package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/payload"
)

func TestWriteFileOverwriteReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	err := writeFile(config.OutputTargetFile{Path: path, Overwrite: true}, payload.NewText("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}

func TestWriteFileAppendsWithoutOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o644))

	err := writeFile(config.OutputTargetFile{Path: path, Overwrite: false}, payload.NewText("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestWriteFilePrependAndCustomAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	prepend := ">> "
	appendStr := " <<END"

	err := writeFile(config.OutputTargetFile{
		Path:      path,
		Overwrite: true,
		Prepend:   &prepend,
		Append:    &appendStr,
	}, payload.NewText("body"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ">> body <<END", string(data))
}

func TestWriteFileOpenFailureWrapsError(t *testing.T) {
	err := writeFile(config.OutputTargetFile{Path: filepath.Join("no", "such", "dir", "out.txt")}, payload.NewText("x"))
	assert.ErrorIs(t, err, ErrCouldNotOpenTargetFile)
}
