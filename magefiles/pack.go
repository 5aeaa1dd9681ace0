//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/magefile/mage/mg"

	"github.com/spaghettifunk/scenestream/engine/assets"
)

type Pack mg.Namespace

// Packages srcDir as build buildName under the streaming root out. Writes the
// package, the scene manifest and the identity record.
func (Pack) Bundle(srcDir, out, buildName string) error {
	src, err := filepath.Abs(srcDir)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	report, err := assets.BuildPackage(osfs.New("/"), src, root, buildName)
	if err != nil {
		return mg.Fatalf(1, "packaging failed: %s", err)
	}
	fmt.Println(report.String())
	return nil
}
