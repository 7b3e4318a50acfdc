package scanner

import (
	"fmt"
	"os"
	"syscall"

	"github.com/ivoronin/dirdiff/internal/types"
)

// newEntry creates an Entry from os.FileInfo found in dir under root.
func newEntry(root, dir string, info os.FileInfo) *types.Entry {
	e := &types.Entry{
		Name:   info.Name(),
		Origin: dir,
		Root:   root,
		ID:     types.NoID,
	}
	setInfo(e, info)
	return e
}

// Stat fills in the size, mtime and inode of e from the file it names.
// Symlinks are not followed; anything but a regular file is an error.
func Stat(e *types.Entry) error {
	info, err := os.Lstat(e.Path())
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file (mode %v)", e.Path(), info.Mode())
	}
	setInfo(e, info)
	return nil
}

func setInfo(e *types.Entry, info os.FileInfo) {
	e.Size = info.Size()
	e.ModTime = info.ModTime()
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		e.Ino = stat.Ino
	}
}
