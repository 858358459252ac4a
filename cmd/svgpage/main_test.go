package main

import "testing"

func TestOutputPath(t *testing.T) {
	for _, test := range []struct {
		input, output string
		raster        bool
		format        string
		expected      string
	}{
		{"icon.svg", "", false, "png", "icon.pdf"},
		{"dir/icon.svg", "", true, "png", "dir/icon.png"},
		{"icon.svg", "", true, "TIFF", "icon.tiff"},
		{"icon.svg", "", true, "tif", "icon.tiff"},
		// unknown formats are encoded as PNG
		{"icon.svg", "", true, "jpeg", "icon.png"},
		{"icon", "", true, "jpeg", "icon.png"},
		{"icon.svg", "out.bin", true, "jpeg", "out.bin"},
		{"-", "out.pdf", false, "", "out.pdf"},
	} {
		path, err := outputPath(test.input, test.output, test.raster, test.format)
		if err != nil {
			t.Fatal(err)
		}
		if path != test.expected {
			t.Errorf("%v: expected %s, got %s", test, test.expected, path)
		}
	}

	for _, raster := range []bool{false, true} {
		if _, err := outputPath("-", "", raster, "png"); err == nil {
			t.Error("expected error for standard input without output")
		}
	}
}

func TestParseRGB(t *testing.T) {
	rgb, err := parseRGB("#ff8000")
	if err != nil {
		t.Fatal(err)
	}
	if rgb != [3]uint8{0xff, 0x80, 0} {
		t.Errorf("unexpected color %v", rgb)
	}
	for _, s := range []string{"", "fff", "gg0000", "ff000000"} {
		if _, err := parseRGB(s); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
}
