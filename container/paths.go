package container

import (
	"path/filepath"
	"strings"
)

const (
	DefaultExtension       = ".sfc"
	DefaultSourceExtension = ".sf"
)

// ReplaceExtension swaps the extension from for to. When path does not end
// in from, its current extension (if any) is replaced instead.
func ReplaceExtension(path, from, to string) string {
	if from != "" && strings.HasSuffix(path, from) {
		return strings.TrimSuffix(path, from) + to
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + to
}

// SourcePath returns the absolute path of the source file matching the
// container at path.
func SourcePath(path, ext, sourceExt string) string {
	src := ReplaceExtension(path, ext, sourceExt)
	abs, err := filepath.Abs(src)
	if err != nil {
		return src
	}
	return abs
}

// ContainerPath returns the container path for a source file.
func ContainerPath(source, sourceExt, ext string) string {
	return ReplaceExtension(source, sourceExt, ext)
}
