package fontdb

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

func writeFonts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string][]byte{
		"a-bold.ttf":        gobold.TTF,
		"b-regular.TTF":     goregular.TTF,
		"nested/mono.ttf":   gomono.TTF,
		"broken.ttf":        []byte("not a font"),
		"nested/readme.txt": []byte("text"),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func subfamily(t *testing.T, f *sfnt.Font) string {
	t.Helper()
	name, err := f.Name(nil, sfnt.NameIDSubfamily)
	if err != nil {
		t.Fatal(err)
	}
	return name
}

func TestFamilies(t *testing.T) {
	c := New(writeFonts(t), filepath.Join(t.TempDir(), "missing"))
	if got := c.Families(); !reflect.DeepEqual(got, []string{"Go", "Go Mono"}) {
		t.Errorf("unexpected families %v", got)
	}
	if got := New().Families(); len(got) != 0 {
		t.Errorf("expected empty catalog, got %v", got)
	}
}

func TestLookup(t *testing.T) {
	c := New(writeFonts(t))

	f, ok := c.Lookup("go")
	if !ok {
		t.Fatal("expected Go family")
	}
	// the regular face is preferred
	if sub := subfamily(t, f); sub != "Regular" {
		t.Errorf("unexpected face %s", sub)
	}
	f2, _ := c.Lookup(" GO ")
	if f2 != f {
		t.Error("expected cached face")
	}

	if _, ok = c.Lookup("Go Mono"); !ok {
		t.Error("expected Go Mono family")
	}
	if _, ok = c.Lookup("Unknown"); ok {
		t.Error("unexpected family")
	}
	if c.Fallback() == nil {
		t.Error("missing fallback")
	}
}

func TestConcurrentLookup(t *testing.T) {
	c := New(writeFonts(t))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.Lookup("Go Mono"); !ok {
				t.Error("expected Go Mono family")
			}
			c.Families()
		}()
	}
	wg.Wait()
}

func TestSystemDirs(t *testing.T) {
	extra := filepath.Join(t.TempDir(), "fonts")
	t.Setenv(EnvFontDirs, extra)
	dirs := SystemDirs()
	if len(dirs) == 0 || dirs[len(dirs)-1] != extra {
		t.Errorf("unexpected directories %v", dirs)
	}
}
