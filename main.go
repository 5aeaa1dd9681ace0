/*
scenestream loads the active content build into a scene: it resolves the
build identity, fetches the scene manifest, opens the asset package and
composes nodes with their mesh, texture and material bindings.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
