package renewal

import (
	"fmt"
	"os"
	"path/filepath"
)

// output is one file produced by a run.
type output struct {
	path string
	data []byte
}

// writeOutputs stages every output in a temp file next to its destination and
// only renames once all of them were written. If a rename fails, outputs
// already moved into place are removed again, so a failing run leaves no
// partial outputs behind.
func writeOutputs(outputs []output) error {
	staged := make([]string, 0, len(outputs))
	defer func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()

	for _, out := range outputs {
		tmp, err := stage(out.path, out.data, 0o644)
		if err != nil {
			return fmt.Errorf("write %s: %w", out.path, err)
		}
		staged = append(staged, tmp)
	}
	for i, out := range outputs {
		if err := os.Rename(staged[i], out.path); err != nil {
			for _, done := range outputs[:i] {
				_ = os.Remove(done.path)
			}
			return fmt.Errorf("write %s: %w", out.path, err)
		}
	}
	return nil
}

func stage(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", err
	}
	if err := tmp.Chmod(perm); err != nil {
		return "", err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return "", err
	}
	ok = true
	return tmpName, nil
}
