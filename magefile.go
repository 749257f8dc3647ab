//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

const (
	buildPath = "build/bandix"
	coverPath = "build/unit.cover"
)

var (
	build = sh.RunCmd("go", "build", "-o", buildPath)
)

// Build builds the application.
func Build() error {

	// Watch for files newer than the app in these directories.
	mod, err := target.Dir(buildPath, "pkg", "cmd", "internal")
	if err != nil {
		return err
	}

	if !mod {
		fmt.Println(buildPath, "already up to date.")
		return nil
	}

	realPath := realPath(buildPath)

	// Unlink the existing binary so it can be replaced without stopping the daemon first.
	if err := sh.Rm(realPath); err != nil {
		return err
	}

	if err := build(); err != nil {
		return err
	}

	// 'Minimal' capability set to run without being uid 0.
	// cap_bpf for opening pinned maps.
	// cap_dac_override for accessing bpffs and the data directory.
	// cap_net_admin for managing sysctl net.netfilter.nf_conntrack_acct
	if err := sh.Run("sudo", "setcap", "cap_bpf,cap_net_admin,cap_dac_override+eip", realPath); err != nil {
		return err
	}

	fmt.Printf("Successfully built %s!\n", buildPath)
	return nil
}

// Test runs the unit tests with the race detector and writes a coverage profile.
func Test() error {

	if err := os.MkdirAll(filepath.Dir(coverPath), 0755); err != nil {
		return err
	}

	return sh.RunV("go", "test", "-race", "-coverprofile="+coverPath, "-covermode=atomic", "./...")
}

// Coverhtml runs the unit tests and opens the coverage report in the browser.
func Coverhtml() error {
	mg.Deps(Test)
	return sh.RunV("go", "tool", "cover", "-html="+coverPath)
}

// Lint runs golangci-lint with the project's configuration.
func Lint() error {
	return sh.RunV("golangci-lint", "run")
}

// realPath resolves (nested) symlinks. If the target of a nested symlink does
// not exist, falls back to the target of the first symlink.
func realPath(path string) string {

	fi, err := os.Lstat(path)
	if err != nil {
		// Return the input string if the path doesn't exist (yet), there's nothing to resolve.
		return path
	}

	if (fi.Mode() & os.ModeSymlink) != 0 {
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			// Return the symlink target path if target file doesn't exist.
			ret, _ := os.Readlink(path)
			return ret
		}

		return realPath
	}

	return path
}
