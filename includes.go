package docpages

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// includeExts are tried in order when an include path names no existing file as written.
var includeExts = []string{templateExt, ".html", ".txt"}

// FSIncludes reads the include fragments named by paths from fsys. Relative paths are
// resolved against dir, absolute ones against the root of fsys. Paths that name no file are
// left out of the result, so they render as missing includes.
func FSIncludes(fsys fs.FS, dir string, paths []string) (map[string]string, error) {
	includes := make(map[string]string, len(paths))
	for _, p := range paths {
		text, ok, err := readInclude(fsys, includePath(dir, p))
		if err != nil {
			return nil, fmt.Errorf("read include %s: %w", p, err)
		}
		if ok {
			includes[p] = text
		}
	}
	return includes, nil
}

func includePath(dir, p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(strings.TrimPrefix(p, "/"))
	}
	return path.Join(dir, p)
}

func readInclude(fsys fs.FS, name string) (string, bool, error) {
	if !fs.ValidPath(name) {
		return "", false, nil
	}
	candidates := []string{name}
	if path.Ext(name) == "" {
		for _, ext := range includeExts {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		b, err := fs.ReadFile(fsys, c)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		return string(b), true, nil
	}
	return "", false, nil
}
