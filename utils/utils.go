package utils

import (
	"os"
	"strings"
)

func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}

	return nil
}

// IsLocalPath reports whether path can be used as a same-site redirect target.
func IsLocalPath(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}

	return !strings.HasPrefix(path, "//") && !strings.HasPrefix(path, "/\\")
}
