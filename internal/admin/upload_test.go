package admin

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteUploadSingleEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.war")
	payload := strings.Repeat("payload", 1000)
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	var buf bytes.Buffer
	require.NoError(t, writeUpload(&buf, path))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	entry := zr.File[0]
	assert.Equal(t, "demo.war", entry.Name)
	assert.True(t, bytes.HasPrefix(entry.Extra, []byte("data-request-type")))

	rc, err := entry.Open()
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestUploadBodyReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.war")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	open := uploadBody(path)
	for i := 0; i < 2; i++ {
		rc, err := open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.NotEmpty(t, data)
	}

	_, err := uploadBody(filepath.Join(t.TempDir(), "missing.war"))()
	assert.Error(t, err)
}

func TestUploadExtraIsPropertiesText(t *testing.T) {
	extra := string(uploadExtra(1700000000000))
	assert.Contains(t, extra, "last-modified = 1700000000000")
	assert.Contains(t, extra, "data-request-is-recursive = true")
}
