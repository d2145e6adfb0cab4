package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".mp4" || ext == ".m4a" || ext == ".webm" || ext == ".ogg"
}

// MakeValidateFileName joins id and file name for the object store,
// rejecting names that may escape the task prefix
func MakeValidateFileName(id, name string) (string, error) {
	fn := filepath.Base(strings.TrimSpace(name))
	if fn == "" || fn == "." || fn == string(filepath.Separator) {
		return "", fmt.Errorf("wrong file name '%s'", name)
	}
	if strings.Contains(fn, "..") {
		return "", fmt.Errorf("wrong file name '%s'", name)
	}
	if id == "" {
		return fn, nil
	}
	return filepath.Join(id, fn), nil
}
