//go:build linux

package barrier

import (
	"bytes"
	"fmt"
	"regexp"
	"sync"

	"github.com/blang/semver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var (
	// syncfs(2) appeared in Linux 2.6.39.
	syncfsRange = semver.MustParseRange(">=2.6.39")

	syncfsOnce sync.Once
	syncfsOK   bool

	releaseRgx = regexp.MustCompile(`^(\d{1,3}\.\d{1,3}(?:\.\d{1,3})?).*$`)
)

func syncDir(dir string) (Mode, error) {

	if !syncfsSupported() {
		unix.Sync()
		return ModeGlobal, nil
	}

	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		// Directory not (yet) created, sync everything instead.
		log.WithField("dir", dir).Warnf("Cannot open data directory for syncfs: %s", err)
		unix.Sync()
		return ModeGlobal, nil
	}
	defer unix.Close(fd)

	if err := unix.Syncfs(fd); err != nil {
		// Still attempt to get data out to disk.
		unix.Sync()
		return ModeGlobal, errors.Wrap(err, errSyncfs)
	}

	return ModeFilesystem, nil
}

// syncfsSupported checks once whether the running kernel implements syncfs.
func syncfsSupported() bool {
	syncfsOnce.Do(func() {
		kr, err := kernelRelease()
		if err != nil {
			// Any kernel a Go binary runs on has it, assume support.
			log.Debugf("Assuming syncfs support: %s", err)
			syncfsOK = true
			return
		}
		syncfsOK = syncfsRange(kr)
	})

	return syncfsOK
}

// kernelRelease returns the version of the running kernel.
func kernelRelease() (semver.Version, error) {

	uname := unix.Utsname{}
	if err := unix.Uname(&uname); err != nil {
		return semver.Version{}, err
	}

	release := string(uname.Release[:bytes.IndexByte(uname.Release[:], 0)])

	return parseRelease(release)
}

// parseRelease extracts the significant x.y(.z) portion of a kernel release
// string, since some distributions append non-semver suffixes
// like '4.20.3-200.fc29.x86_64'.
func parseRelease(release string) (semver.Version, error) {

	out := releaseRgx.FindStringSubmatch(release)
	if len(out) == 0 {
		return semver.Version{}, fmt.Errorf(errFmtKernelRelease, release)
	}

	return semver.ParseTolerant(out[1])
}
