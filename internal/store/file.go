package store

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFile atomically replaces the file at path with the output of enc.
// The data is written to a temporary file in the same directory, synced and
// renamed over path, so readers only ever see the old or the new contents.
func WriteFile(path string, perm os.FileMode, enc func(io.Writer) error) (err error) {

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errCreateTemp)
	}
	tmp := f.Name()

	// Clean up the temporary file on any failure.
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = enc(bw); err != nil {
		return errors.Wrap(err, errEncode)
	}

	if err = bw.Flush(); err != nil {
		return errors.Wrap(err, errWrite)
	}
	if err = f.Chmod(perm); err != nil {
		return errors.Wrap(err, errWrite)
	}
	if err = f.Sync(); err != nil {
		return errors.Wrap(err, errWrite)
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, errWrite)
	}

	if err = os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, errRename)
	}

	return nil
}

// ReadFile opens the file at path and passes it to dec. Returns false without
// error if the file does not exist.
func ReadFile(path string, dec func(io.Reader) error) (bool, error) {

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := dec(bufio.NewReader(f)); err != nil {
		return true, errors.Wrapf(err, "decoding %s", path)
	}

	return true, nil
}
