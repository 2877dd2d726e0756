package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPIDPath is used when no usable pid file location is configured
const DefaultPIDPath = "/var/run/contentd.pid"

// GetPIDPath returns the path to the PID file.
//
// Priority:
// 1. If filename is an absolute path, return it directly.
// 2. Resolve it against the working directory when the parent directory exists
// 3. Otherwise, fallback to /var/run/contentd.pid
func GetPIDPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}

	if p := getPIDCurrentDir(filename); p != "" {
		return p
	}
	return DefaultPIDPath
}

func getPIDCurrentDir(filename string) string {
	if filename == "" {
		return ""
	}

	currentDir, err := os.Getwd()
	if err != nil || currentDir == "" {
		return ""
	}

	absPath, err := filepath.Abs(filepath.Join(currentDir, filename))
	if err != nil {
		return ""
	}
	if _, err := os.Stat(filepath.Dir(absPath)); err == nil {
		return absPath
	}
	return ""
}

// PIDFile writes and removes the process id file of a running server
type PIDFile struct {
	path string
}

// NewPIDFile creates a PIDFile for the resolved path of filename
func NewPIDFile(filename string) *PIDFile {
	return &PIDFile{path: GetPIDPath(filename)}
}

// Path returns the resolved file path
func (p *PIDFile) Path() string { return p.path }

// Write stores the current process id
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}
	return os.WriteFile(p.path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// Read returns the process id stored in the file
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// Remove deletes the file
func (p *PIDFile) Remove() error {
	return os.Remove(p.path)
}
