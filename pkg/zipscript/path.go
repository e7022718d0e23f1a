package zipscript

import (
	"path"
	"strings"
)

// normalizeVirtualPath replaces backslashes with forward slashes, trims
// surrounding whitespace, and ensures a leading slash.
func normalizeVirtualPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// releasePathOf returns the parent directory of a file's virtual path,
// or "/" if the file sits at the root.
func releasePathOf(virtualFilePath string) string {
	normalized := normalizeVirtualPath(virtualFilePath)
	dir := path.Dir(normalized)
	if dir == "." {
		return "/"
	}
	return dir
}

func fileNameOf(virtualFilePath string) string {
	normalized := normalizeVirtualPath(virtualFilePath)
	return path.Base(normalized)
}
