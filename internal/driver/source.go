package driver

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExt is the source file extension the driver looks for when
// walking a directory, per spec §6 "Source file extension. Configurable;
// default fan/am."
const DefaultExt = "fan"

// CollectSource reads path (a single file, or every matching file under a
// directory walked recursively) and concatenates their contents. Files are
// visited in sorted path order: traversal order never changes program
// semantics beyond duplicate `let` shadowing, which overwrites in the
// order sources are concatenated, so a stable order keeps runs
// reproducible.
func CollectSource(path, ext string) (string, error) {
	if ext == "" {
		ext = DefaultExt
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		return string(data), err
	}

	suffix := "." + ext
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, suffix) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	var b strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
