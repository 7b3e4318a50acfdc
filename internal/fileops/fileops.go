//go:build unix

// Package fileops copies, replaces and deletes files for mismatch resolution.
//
// Writes are atomic: content is copied to "<target>.dirdiff.tmp" next to the
// target and renamed over it, so a target is either untouched or complete.
// The copy keeps the permission bits and modification time of the source.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const (
	// tmpSuffix marks in-flight copies.
	tmpSuffix = ".dirdiff.tmp"

	// orphanedTmpMaxAge is the minimum age for a .dirdiff.tmp file to be considered orphaned.
	// Files younger than this are assumed to be from an active operation.
	orphanedTmpMaxAge = 1 * time.Minute
)

// Local implements the file primitives on the local filesystem.
type Local struct{}

// Copy implements resolver.FileOps.
func (Local) Copy(source, target string) error { return CopyFile(source, target) }

// Replace implements resolver.FileOps.
func (Local) Replace(source, target string) error { return ReplaceFile(source, target) }

// Delete implements resolver.FileOps.
func (Local) Delete(target string) error { return DeleteFile(target) }

// CopyFile copies source to a new file at target, creating parent directories.
// Fails with fs.ErrExist if target already exists.
func CopyFile(source, target string) error {
	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%s: %w", target, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return atomicCopy(source, target)
}

// ReplaceFile overwrites the regular file at target with the content of source.
func ReplaceFile(source, target string) error {
	info, err := os.Lstat(target)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file (mode %v)", target, info.Mode())
	}
	return atomicCopy(source, target)
}

// DeleteFile removes the regular file at target.
func DeleteFile(target string) error {
	info, err := os.Lstat(target)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file (mode %v)", target, info.Mode())
	}
	return os.Remove(target)
}

// atomicCopy writes source to a temp file beside target, then renames it over target.
// If the temp file exists and is orphaned (old enough), it will be cleaned up and retried.
func atomicCopy(source, target string) error {
	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %s: not a regular file", source)
	}

	tmp := target + tmpSuffix
	dst, err := createTmp(tmp, info.Mode().Perm())
	if errors.Is(err, syscall.EEXIST) {
		if cleanupErr := tryCleanupOrphanedTmp(tmp, orphanedTmpMaxAge); cleanupErr != nil {
			return fmt.Errorf("tmp file exists and cannot be cleaned: %w", cleanupErr)
		}
		// Retry after cleanup
		dst, err = createTmp(tmp, info.Mode().Perm())
	}
	if err != nil {
		return err
	}

	if err := writeTmp(dst, src, tmp, info); err != nil {
		_ = os.Remove(tmp) // cleanup on failure
		return err
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // cleanup on failure
		return err
	}
	return nil
}

func createTmp(tmp string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
}

// writeTmp fills and closes dst, then stamps it with the source mtime.
func writeTmp(dst *os.File, src io.Reader, tmp string, info os.FileInfo) error {
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	// Umask may have narrowed the mode at creation
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(tmp, time.Now(), info.ModTime())
}

// tryCleanupOrphanedTmp attempts to clean up an orphaned .dirdiff.tmp file.
// Returns nil if successfully removed, or an error explaining why cleanup was skipped/failed.
//
// Safety criteria (ALL must be met):
// 1. File is older than maxAge (protects against race with active operations)
// 2. File is a regular file (never removes directories or special files)
//
// A temp file is a partial copy of a source that still exists, so removing it
// loses no data.
func tryCleanupOrphanedTmp(path string, maxAge time.Duration) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("lstat: %w", err)
	}

	// Safety check 1: Age
	cutoff := time.Now().Add(-maxAge)
	if info.ModTime().After(cutoff) {
		return fmt.Errorf("file too recent (mtime %v, cutoff %v)", info.ModTime(), cutoff)
	}

	// Safety check 2: Type
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file (mode %v)", info.Mode())
	}

	return os.Remove(path)
}
