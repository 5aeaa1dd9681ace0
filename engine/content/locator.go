package content

import (
	"fmt"
	"path"
	"strings"
)

type Platform string

const (
	PlatformStandalone Platform = "standalone"
	// PlatformAndroid reads everything from inside the application archive.
	PlatformAndroid Platform = "android"
)

func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PlatformStandalone:
		return PlatformStandalone, nil
	case PlatformAndroid:
		return PlatformAndroid, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

const (
	configurationDir   = "ConfigurationData"
	identityRecordName = "AssetBundleConfig.json"
	manifestName       = "Data.json"
	packageDir         = "AssetBundles"
)

// Locator computes where the identity record, the manifests and the packages
// live for a given platform.
type Locator struct {
	// StreamingRoot is a filesystem path, an http(s) URL or an s3:// prefix.
	StreamingRoot string
	// AppDataPath is the application archive on sandboxed platforms.
	AppDataPath string
	Platform    Platform
}

// Root is the base every other location is joined onto.
func (l Locator) Root() string {
	if l.Platform == PlatformAndroid {
		return "jar:file://" + l.AppDataPath + "!/assets"
	}
	return l.StreamingRoot
}

func (l Locator) IdentityURI() string {
	return joinURI(l.Root(), configurationDir, identityRecordName)
}

func (l Locator) ManifestURI(id BuildIdentity) string {
	return joinURI(l.Root(), configurationDir, string(id), manifestName)
}

func (l Locator) PackageURI(id BuildIdentity) string {
	return joinURI(l.Root(), packageDir, string(id))
}

// IsLocal reports whether the root is on the local filesystem.
func (l Locator) IsLocal() bool {
	root := l.Root()
	return !strings.Contains(root, "://") || strings.HasPrefix(root, "file://")
}

func joinURI(base string, elems ...string) string {
	rest := path.Join(elems...)
	if strings.Contains(base, "://") {
		return strings.TrimRight(base, "/") + "/" + rest
	}
	return path.Join(base, rest)
}
