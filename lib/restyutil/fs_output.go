package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	devenv "yamisign/dev/env"
)

// FilesystemOutput writes each message to its own file in a directory
// that is cleared when the output is created.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	path := filepath.Join(o.directory, fmt.Sprintf("%s.txt", id))
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
