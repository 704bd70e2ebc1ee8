package devenv

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"yamisign/lib/configutil"
)

const moduleName = "yamisign"

const stateDir = "<dev_state>"

// isWorkspaceRoot reports whether dir holds this module's go.mod.
func isWorkspaceRoot(dir string) bool {
	mod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return false
	}
	scanner := bufio.NewScanner(bytes.NewReader(mod))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == "module" {
			return fields[1] == moduleName
		}
	}
	return false
}

// GetWorkspaceRoot walks up from the working directory to the repository root.
func GetWorkspaceRoot() (string, error) {
	dir, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	for {
		if isWorkspaceRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// GetStateFilePath is the path of a file under dev/.state, which may not exist.
func GetStateFilePath(path string) (string, error) {
	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "dev", ".state", path), nil
}

// GetStateConfig reads a config file (and its .local override) from dev/.state.
func GetStateConfig[T any](path string) (T, error) {
	configPath, err := GetStateFilePath(path)
	if err != nil {
		var out T
		return out, err
	}
	return configutil.ReadConfig[T](configPath)
}

// ResolvePath expands a leading `<dev_state>` into the workspace's dev/.state
// directory, creating it if needed. Other paths are returned as is.
func ResolvePath(path string) (string, error) {
	rest, ok := strings.CutPrefix(filepath.ToSlash(path), stateDir)
	if !ok {
		return path, nil
	}

	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, "dev", ".state")
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(rest, "/"))), nil
}
