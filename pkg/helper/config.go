package helper

import (
	"os"
	"path/filepath"
)

// SystemConfigDir is searched last when a relative config name is not found locally
const SystemConfigDir = "/etc/contentd"

// localConfigDirs are tried in order, relative to the working directory
var localConfigDirs = []string{".", "configs"}

// GetCfgPath resolves the configuration file to load. Absolute names are used
// as given; relative names are looked up in ./ and ./configs before falling
// back to SystemConfigDir.
func GetCfgPath(filename string) string {
	if filename == "" {
		panic("filename cannot be empty")
	}
	if filepath.IsAbs(filename) {
		return filename
	}
	if p := findLocal(filename); p != "" {
		return p
	}
	return filepath.Join(SystemConfigDir, filename)
}

func findLocal(filename string) string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, dir := range localConfigDirs {
		candidate := filepath.Join(wd, dir, filename)
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(candidate); err == nil {
			return abs
		}
	}
	return ""
}
