package corpus

import (
	"bufio"
	"os"
	"path/filepath"
)

// writeFileAtomic writes content to a temporary file beside dest and renames
// it into place, so readers never observe a partially written document.
func writeFileAtomic(dest string, content string) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	writer := bufio.NewWriter(tmp)
	if _, err = writer.WriteString(content); err != nil {
		return err
	}
	if err = writer.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(0644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dest)
}
