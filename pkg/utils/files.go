package utils

import (
	"os"
	"path/filepath"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputTarget picks where a translation of input is written: next to a
// source file as <stem><ext>, or inside a source directory as <dir><ext>.
func OutputTarget(input, ext string) (dir string, name string, err error) {
	fullPath, parentDir, err := GetPathInfo(input)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", "", err
	}
	if info.IsDir() {
		return fullPath, filepath.Base(fullPath) + ext, nil
	}
	return parentDir, Stem(fullPath) + ext, nil
}
