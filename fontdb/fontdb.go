// Package fontdb provides a read-only catalog of the fonts
// installed on the host, used to convert SVG text to outlines.
//
// The font directories are scanned once, on first use. Faces are
// then parsed lazily and cached, so that a Catalog may be used
// concurrently.
package fontdb

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/cases"
)

// EnvFontDirs is the environment variable listing additionnal
// font directories, separated by the OS path list separator.
const EnvFontDirs = "SVGPAGE_FONT_DIRS"

// face locates a font on disk
type face struct {
	path    string
	index   int // in a collection
	regular bool
}

// Catalog is a set of font families.
type Catalog struct {
	dirs []string

	once     sync.Once
	families []string        // sorted, unique
	faces    map[string]face // by folded family name

	cache sync.Map // folded family name -> *sfnt.Font
}

// New returns a catalog of the fonts found in `dirs`, and their
// sub-directories. The directories are only read on first use.
func New(dirs ...string) *Catalog {
	return &Catalog{dirs: dirs}
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// Default returns the catalog of the fonts installed on the host.
func Default() *Catalog {
	defaultCatalogOnce.Do(func() { defaultCatalog = New(SystemDirs()...) })
	return defaultCatalog
}

// SystemDirs returns the usual font directories of the platform,
// followed by the content of $SVGPAGE_FONT_DIRS.
func SystemDirs() []string {
	var dirs []string
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if windir := os.Getenv("WINDIR"); windir != "" {
			dirs = append(dirs, filepath.Join(windir, "Fonts"))
		}
	case "darwin":
		dirs = append(dirs, "/Library/Fonts", "/System/Library/Fonts")
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
	default:
		dirs = append(dirs, "/usr/share/fonts", "/usr/local/share/fonts")
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".fonts"), filepath.Join(home, ".local", "share", "fonts"))
		}
	}
	if env := os.Getenv(EnvFontDirs); env != "" {
		for _, dir := range filepath.SplitList(env) {
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

func fold(family string) string {
	return cases.Fold().String(strings.TrimSpace(family))
}

func isFontFile(path string) (ok, collection bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttf", ".otf":
		return true, false
	case ".ttc", ".otc":
		return true, true
	}
	return false, false
}

// parseFonts returns the faces stored in `data`.
func parseFonts(data []byte, collection bool) ([]*sfnt.Font, error) {
	if !collection {
		f, err := sfnt.Parse(data)
		if err != nil {
			return nil, err
		}
		return []*sfnt.Font{f}, nil
	}
	c, err := sfnt.ParseCollection(data)
	if err != nil {
		return nil, err
	}
	out := make([]*sfnt.Font, 0, c.NumFonts())
	for i := 0; i < c.NumFonts(); i++ {
		f, err := c.Font(i)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// familyName returns the typographic family name of the face,
// or its legacy family name.
func familyName(buf *sfnt.Buffer, f *sfnt.Font) string {
	if name, err := f.Name(buf, sfnt.NameIDTypographicFamily); err == nil && name != "" {
		return name
	}
	name, _ := f.Name(buf, sfnt.NameIDFamily)
	return name
}

func isRegular(buf *sfnt.Buffer, f *sfnt.Font) bool {
	sub, _ := f.Name(buf, sfnt.NameIDSubfamily)
	switch strings.ToLower(sub) {
	case "regular", "normal", "book", "roman":
		return true
	}
	return false
}

// scan walks the directories. Unreadable files and directories are skipped.
func (c *Catalog) scan() {
	c.faces = make(map[string]face)
	var buf sfnt.Buffer
	for _, dir := range c.dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			ok, collection := isFontFile(path)
			if !ok {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			fonts, err := parseFonts(data, collection)
			if err != nil {
				return nil
			}
			for index, f := range fonts {
				c.add(path, index, familyName(&buf, f), isRegular(&buf, f))
			}
			return nil
		})
	}
	sort.Strings(c.families)
}

func (c *Catalog) add(path string, index int, family string, regular bool) {
	key := fold(family)
	if key == "" {
		return
	}
	existing, has := c.faces[key]
	if !has {
		c.families = append(c.families, strings.TrimSpace(family))
	}
	if !has || (regular && !existing.regular) {
		c.faces[key] = face{path: path, index: index, regular: regular}
	}
}

// Families returns the sorted family names of the catalog.
// The first spelling of a family wins.
func (c *Catalog) Families() []string {
	c.once.Do(c.scan)
	return append([]string(nil), c.families...)
}

// Lookup returns the face used for `family`, matched without case.
// Regular faces are preferred.
func (c *Catalog) Lookup(family string) (*sfnt.Font, bool) {
	c.once.Do(c.scan)
	key := fold(family)
	if f, ok := c.cache.Load(key); ok {
		return f.(*sfnt.Font), true
	}
	fa, ok := c.faces[key]
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(fa.path)
	if err != nil {
		return nil, false
	}
	_, collection := isFontFile(fa.path)
	fonts, err := parseFonts(data, collection)
	if err != nil || fa.index >= len(fonts) {
		return nil, false
	}
	f, _ := c.cache.LoadOrStore(key, fonts[fa.index])
	return f.(*sfnt.Font), true
}

var (
	fallback     *sfnt.Font
	fallbackOnce sync.Once
)

// Fallback returns the Go Regular face, always available.
func (c *Catalog) Fallback() *sfnt.Font {
	fallbackOnce.Do(func() {
		var err error
		fallback, err = sfnt.Parse(goregular.TTF)
		if err != nil { // embedded font
			panic(err)
		}
	})
	return fallback
}
