//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Loads the active build with the given configuration file and runs the host loop.
func (Run) Engine(configPath string) error {
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "run", "--config", configPath), withStream()); err != nil {
		return err
	}
	return nil
}
