//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package barrier

import "golang.org/x/sys/unix"

// No syncfs equivalent on BSDs, fall back to sync(2).
func syncDir(string) (Mode, error) {
	if err := unix.Sync(); err != nil {
		return ModeNone, err
	}
	return ModeGlobal, nil
}
