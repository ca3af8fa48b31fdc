package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// Icon paths are relative to the report directory.
const (
	imagesPrefix     = "images/"
	fallbackIcon     = imagesPrefix + "yes.png"
	fallbackGreyIcon = imagesPrefix + "yes-grey.png"
	transparentIcon  = imagesPrefix + "transparent.png"
)

// AssetSet is the set of icon file names available to the report.
type AssetSet map[string]struct{}

// NewAssetSet returns a set holding names.
func NewAssetSet(names ...string) AssetSet {
	a := make(AssetSet, len(names))
	for _, n := range names {
		a[n] = struct{}{}
	}
	return a
}

// LoadAssets lists the .png files in dir. A missing directory yields an
// empty set.
func LoadAssets(dir string) (AssetSet, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return AssetSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("render: list assets in %q: %w", dir, err)
	}
	a := make(AssetSet, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			a[e.Name()] = struct{}{}
		}
	}
	return a, nil
}

// Has reports whether name is available.
func (a AssetSet) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// serviceIcon returns the icon for a service cell. Unavailable services use
// the -grey variant.
func (a AssetSet) serviceIcon(kind types.ServiceKind, available bool) string {
	name := kind.Slug() + ".png"
	fallback := fallbackIcon
	if !available {
		name = kind.Slug() + "-grey.png"
		fallback = fallbackGreyIcon
	}
	if a.Has(name) {
		return path.Join(imagesPrefix, name)
	}
	return fallback
}

// implementationIcon returns the logo for a canonical implementation name.
func (a AssetSet) implementationIcon(name string) string {
	if name != "" && a.Has(name+".png") {
		return path.Join(imagesPrefix, name+".png")
	}
	return transparentIcon
}
