package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ReadFileContents reads the entire file at the given path and returns its bytes. Returns an error with a stack
// trace if the file could not be read.
func ReadFileContents(filePath string) ([]byte, error) {
	b, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// FileExists returns a boolean indicating whether a file exists at the given path and is not a directory.
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CreateFile will create a file at the given path and file name combination. If the path is the empty string,
// the file will be created in the current working directory.
func CreateFile(path string, fileName string) (*os.File, error) {
	// By default, the path will be the name of the file
	filePath := fileName

	// Check to see if the file needs to be created in another directory or the working directory
	if path != "" {
		err := MakeDirectory(path)
		if err != nil {
			return nil, err
		}
		filePath = filepath.Join(path, fileName)
	}

	// Create the file
	file, err := os.Create(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return file, nil
}

// MakeDirectory creates a directory at the given path, including any parent directories which do not exist.
// Returns an error, if one occurred.
func MakeDirectory(dirToMake string) error {
	dirInfo, err := os.Stat(dirToMake)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.WithStack(os.MkdirAll(dirToMake, 0777))
		}
		return errors.WithStack(err)
	}

	// dirToMake exists but is a file, throw an error accordingly
	if !dirInfo.IsDir() {
		return fmt.Errorf("there is a file with the same name as %s", dirToMake)
	}

	return nil
}

// GetFileNameWithoutExtension obtains a filename without the extension. This does not contain any preceding
// directory paths.
func GetFileNameWithoutExtension(filePath string) string {
	return GetFilePathWithoutExtension(filepath.Base(filePath))
}

// GetFilePathWithoutExtension obtains a file path without the extension. This retains all preceding directory
// paths.
func GetFilePathWithoutExtension(filePath string) string {
	return filePath[:len(filePath)-len(filepath.Ext(filePath))]
}
