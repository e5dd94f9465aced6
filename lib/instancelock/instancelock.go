// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package instancelock holds an exclusive advisory lock on a file for
// the life of a process, so that only one compliance service runs
// against a given database.
//
// The lock is flock(2) on a sidecar file. The kernel releases it when
// the process exits, so a crashed service never leaves a stale lock.
package instancelock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrHeld is returned by Acquire when another process holds the lock.
var ErrHeld = errors.New("instancelock: lock held by another process")

// Lock is a held instance lock.
type Lock struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Acquire takes the lock at path without blocking, creating the file
// if needed, and records the holder's PID in it. Returns an error
// wrapping ErrHeld if another process holds it.
func Acquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("instancelock: opening %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		holder := readHolder(file)
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if holder > 0 {
				return nil, fmt.Errorf("%w: %s (pid %d)", ErrHeld, path, holder)
			}
			return nil, fmt.Errorf("%w: %s", ErrHeld, path)
		}
		return nil, fmt.Errorf("instancelock: flock %s: %w", path, err)
	}

	if err := file.Truncate(0); err == nil {
		file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{file: file, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. The file is left in place. Safe to call more
// than once.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("instancelock: unlocking %s: %w", l.path, err)
	}
	return closeErr
}

func readHolder(file *os.File) int {
	buffer := make([]byte, 32)
	n, _ := file.ReadAt(buffer, 0)
	pid, err := strconv.Atoi(strings.TrimSpace(string(buffer[:n])))
	if err != nil {
		return 0
	}
	return pid
}
