package admin

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zip"

	"github.com/conneroisu/payara-dev/internal/properties"
)

// uploadExtra returns the Java Properties text stored in the zip entry's
// extra field. The server reads the transfer metadata from it.
func uploadExtra(modifiedMillis int64) []byte {
	props := properties.New()
	props.Set("data-request-type", "file-xfer")
	props.Set("last-modified", strconv.FormatInt(modifiedMillis, 10))
	props.Set("data-request-name", "DEFAULT")
	props.Set("data-request-is-recursive", "true")
	props.Set("Content-Type", "application/octet-stream")
	return props.Encode()
}

// writeUpload writes path as the single entry of a zip stream to w.
func writeUpload(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	// Modified stays zero so the writer appends no timestamp extra block.
	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:   filepath.Base(path),
		Method: zip.Deflate,
		Extra:  uploadExtra(info.ModTime().UnixMilli()),
	})
	if err != nil {
		return err
	}
	if _, err := io.Copy(entry, f); err != nil {
		return err
	}
	return zw.Close()
}

// uploadBody streams the zip through a pipe so large archives are never
// buffered in memory. It matches the http.Request.GetBody signature so a
// retried request can reopen the payload.
func uploadBody(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(writeUpload(pw, path))
		}()
		return pr, nil
	}
}
