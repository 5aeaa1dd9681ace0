package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/zip"

	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
)

// excludedExtensions never go into a package: editor metadata, scripts and
// scene definitions.
var excludedExtensions = map[string]bool{
	".meta":  true,
	".cs":    true,
	".unity": true,
}

// ManifestFileName is installed as the build manifest when present at the
// top of the source directory.
const ManifestFileName = "Data.json"

type BuildReport struct {
	Build        string
	PackagePath  string
	ManifestPath string
	IdentityPath string
	Size         int64
	Assets       []string
	Skipped      []string
}

func (r *BuildReport) String() string {
	return fmt.Sprintf("Size of package %s is %d", r.PackagePath, r.Size)
}

// BuildPackage packs every asset under srcDir into
// <streamingRoot>/AssetBundles/<buildName> and points the identity record at
// the new build.
func BuildPackage(fs billy.Filesystem, srcDir, streamingRoot, buildName string) (*BuildReport, error) {
	buildName = strings.TrimSpace(buildName)
	if buildName == "" {
		return nil, errors.New("build name is not provided")
	}
	if err := content.ValidateBuildName(buildName); err != nil {
		return nil, err
	}
	info, err := fs.Stat(srcDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("asset directory %q does not exist", srcDir)
	}

	report := &BuildReport{
		Build:        buildName,
		PackagePath:  path.Join(streamingRoot, "AssetBundles", buildName),
		IdentityPath: path.Join(streamingRoot, "ConfigurationData", "AssetBundleConfig.json"),
	}

	var files []string
	err = util.Walk(fs, srcDir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if excludedExtensions[strings.ToLower(path.Ext(rel))] {
			report.Skipped = append(report.Skipped, rel)
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", srcDir, err)
	}
	sort.Strings(files)

	if err := fs.MkdirAll(path.Dir(report.PackagePath), 0o755); err != nil {
		return nil, err
	}
	out, err := fs.Create(report.PackagePath)
	if err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}
	zw := zip.NewWriter(out)
	for _, rel := range files {
		if rel == ManifestFileName {
			continue
		}
		if err := addToPackage(fs, zw, path.Join(srcDir, rel), rel); err != nil {
			zw.Close()
			out.Close()
			return nil, err
		}
		report.Assets = append(report.Assets, rel)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return nil, fmt.Errorf("finalize package: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, err
	}

	if stat, err := fs.Stat(report.PackagePath); err == nil {
		report.Size = stat.Size()
	}

	for _, rel := range files {
		if rel != ManifestFileName {
			continue
		}
		report.ManifestPath = path.Join(streamingRoot, "ConfigurationData", buildName, ManifestFileName)
		data, err := util.ReadFile(fs, path.Join(srcDir, rel))
		if err != nil {
			return nil, err
		}
		if err := writeFile(fs, report.ManifestPath, data); err != nil {
			return nil, err
		}
	}

	record, err := json.Marshal(struct {
		BuildName string `json:"buildName"`
	}{buildName})
	if err != nil {
		return nil, err
	}
	if err := writeFile(fs, report.IdentityPath, record); err != nil {
		return nil, err
	}

	core.LogInfo("%s", report.String())
	return report, nil
}

func addToPackage(fs billy.Filesystem, zw *zip.Writer, src, name string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("add %q: %w", name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("add %q: %w", name, err)
	}
	return nil
}

func writeFile(fs billy.Filesystem, name string, data []byte) error {
	if err := fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return util.WriteFile(fs, name, data, 0o644)
}
