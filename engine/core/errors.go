package core

import (
	"errors"
	"fmt"
)

// Pipeline-fatal errors. Any of these stops the run before (or while) the scene is composed.
var (
	ErrIdentityUnresolved = errors.New("build identity unresolved")
	ErrFetchFailed        = errors.New("fetch failed")
	ErrParseError         = errors.New("parse error")
	ErrPackageNotFound    = errors.New("asset package not found")
	ErrPackageCorrupt     = errors.New("asset package corrupt")
)

// Component-local errors. These are logged and counted, never propagated past the node.
var (
	ErrAssetMissing             = errors.New("asset missing from package")
	ErrAssetTypeMismatch        = errors.New("asset type mismatch")
	ErrUnsupportedComponentKind = errors.New("unsupported component kind")
)

var ErrPackageReleased = errors.New("asset package already released")

// Stage names a step of the scene pipeline.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageManifest Stage = "manifest"
	StagePackage  Stage = "package"
	StageCompose  Stage = "compose"
)

// StageError tags a pipeline-fatal error with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err belongs to the pipeline-fatal part of the taxonomy.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrIdentityUnresolved),
		errors.Is(err, ErrFetchFailed),
		errors.Is(err, ErrParseError),
		errors.Is(err, ErrPackageNotFound),
		errors.Is(err, ErrPackageCorrupt):
		return true
	}
	return false
}
