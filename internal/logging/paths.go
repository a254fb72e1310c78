package logging

import (
	"os"
	"path/filepath"
)

// LogFileName is the name of the debug log.
const LogFileName = "amantmpl.log"

// DefaultLogDir returns ~/.amantmpl/logs, or a directory under the system
// temp dir when there is no home directory.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amantmpl", "logs")
	}
	return filepath.Join(home, ".amantmpl", "logs")
}

// DefaultLogPath returns the debug log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), LogFileName)
}
