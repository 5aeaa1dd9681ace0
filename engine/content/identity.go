package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spaghettifunk/scenestream/engine/core"
)

// BuildIdentity names the content build that is currently active.
type BuildIdentity string

type identityRecord struct {
	BuildName string `json:"buildName"`
}

// Resolver reads the identity record at a well-known location.
type Resolver struct {
	source  Source
	locator Locator
}

func NewResolver(source Source, locator Locator) *Resolver {
	return &Resolver{source: source, locator: locator}
}

// Resolve fetches the identity record once. An absent or empty build name is
// reported as core.ErrIdentityUnresolved.
func (r *Resolver) Resolve(ctx context.Context) (BuildIdentity, error) {
	uri := r.locator.IdentityURI()
	data, err := r.source.Fetch(ctx, uri)
	if err != nil {
		core.LogError("failed to fetch build identity from '%s': %s", uri, err.Error())
		return "", fmt.Errorf("%w: %w", core.ErrFetchFailed, err)
	}
	id, err := ParseIdentityRecord(data)
	if err != nil {
		core.LogError("failed to parse build identity from '%s': %s", uri, err.Error())
		return "", err
	}
	return id, nil
}

func ParseIdentityRecord(data []byte) (BuildIdentity, error) {
	var rec identityRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("%w: identity record: %w", core.ErrParseError, err)
	}
	name := strings.TrimSpace(rec.BuildName)
	if name == "" {
		return "", core.ErrIdentityUnresolved
	}
	if err := ValidateBuildName(name); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrIdentityUnresolved, err)
	}
	return BuildIdentity(name), nil
}

// ValidateBuildName checks that a build name is a single path element, so the
// manifest and package locations stay under the streaming root.
func ValidateBuildName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid build name %q", name)
	}
	return nil
}
