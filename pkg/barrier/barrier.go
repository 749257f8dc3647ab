// Package barrier forces pending filesystem writes to stable storage.
package barrier

import (
	log "github.com/sirupsen/logrus"
)

// Mode describes the scope of a barrier that was executed.
type Mode uint8

// Barrier scopes, from most to least precise.
const (
	// ModeNone means no sync primitive was available on the platform.
	ModeNone Mode = iota
	// ModeGlobal means all filesystems on the machine were synced.
	ModeGlobal
	// ModeFilesystem means only the filesystem backing the directory was synced.
	ModeFilesystem
)

func (m Mode) String() string {
	switch m {
	case ModeFilesystem:
		return "filesystem"
	case ModeGlobal:
		return "global"
	}
	return "none"
}

// Sync forces all pending writes for the filesystem backing dir to stable
// storage before returning. When dir cannot be opened or the platform has no
// directory-scoped sync primitive, a coarser global sync is used instead and
// the returned Mode reflects that.
func Sync(dir string) (Mode, error) {
	m, err := syncDir(dir)
	if err != nil {
		return m, err
	}

	if m != ModeFilesystem {
		log.WithField("dir", dir).Infof("Used %s sync barrier instead of filesystem-scoped sync", m)
	}

	return m, nil
}
