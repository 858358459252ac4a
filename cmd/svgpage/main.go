// Command svgpage converts an SVG file to a one page PDF document,
// or to a PNG or TIFF image with -raster.
//
//	svgpage -o out.pdf -page a4 -bg ffffff input.svg
//	svgpage -raster -scale 4 -o out.png input.svg
//	svgpage -backend contentstream -o out.pdf - < input.svg
//	svgpage -fonts
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/benoitkugler/svgpage"
	"github.com/benoitkugler/svgpage/svgraster"
)

func main() {
	log.SetFlags(0)

	output := flag.String("o", "", "output file (default: input file with the output extension)")
	raster := flag.Bool("raster", false, "output a raster image instead of a PDF page")
	config := flag.String("config", "", "JSON file with the page or raster options")
	scale := flag.Float64("scale", 0, "raster scale, in [1, 8]")
	dpi := flag.Float64("dpi", 0, "density of the SVG units, in [72, 300]")
	page := flag.String("page", "", "page size: letter, legal, tabloid, a3, a4 or a5")
	width := flag.Float64("width", 0, "page width, in points")
	height := flag.Float64("height", 0, "page height, in points")
	margin := flag.Float64("margin", -1, "page margin, in points")
	bg := flag.String("bg", "", "page background color, as rrggbb")
	font := flag.String("font", "", "preferred font family")
	format := flag.String("format", "png", "raster format: png or tiff")
	backend := flag.String("backend", "", "vector backend: gofpdf or contentstream")
	fonts := flag.Bool("fonts", false, "list the installed font families and exit")
	flag.Parse()

	if *fonts {
		for _, family := range svgpage.ListFonts() {
			fmt.Println(family)
		}
		return
	}

	if flag.NArg() != 1 {
		log.Fatal("usage: svgpage [flags] <input.svg>")
	}
	input := flag.Arg(0)
	path, err := outputPath(input, *output, *raster, *format)
	if err != nil {
		log.Fatal(err)
	}
	source, err := readSource(input)
	if err != nil {
		log.Fatalf("reading SVG: %v", err)
	}

	var out []byte
	if *raster {
		opts := &svgpage.RasterOptions{}
		if err := readConfig(*config, opts); err != nil {
			log.Fatal(err)
		}
		setFlag(&opts.RasterScale, *scale, *scale > 0)
		setFlag(&opts.PreferredFontFamily, *font, *font != "")
		setFlag(&opts.Format, *format, isSet("format") || opts.Format == nil)
		if *output == "" {
			path = defaultOutput(input, "."+svgraster.ParseFormat(*opts.Format).String())
		}
		out, err = svgpage.ToRaster(source, opts)
	} else {
		opts := &svgpage.PageOptions{}
		if err := readConfig(*config, opts); err != nil {
			log.Fatal(err)
		}
		setFlag(&opts.RasterScale, *scale, *scale > 0)
		setFlag(&opts.DPI, *dpi, *dpi > 0)
		setFlag(&opts.PageSize, *page, *page != "")
		setFlag(&opts.PageWidthPt, *width, *width > 0)
		setFlag(&opts.PageHeightPt, *height, *height > 0)
		setFlag(&opts.PageMarginPt, *margin, *margin >= 0)
		setFlag(&opts.PreferredFontFamily, *font, *font != "")
		setFlag(&opts.VectorBackend, *backend, *backend != "")
		if *bg != "" {
			rgb, err := parseRGB(*bg)
			if err != nil {
				log.Fatal(err)
			}
			opts.PageBackgroundRGB = &rgb
		}
		out, err = svgpage.ToPage(source, opts)
	}
	if err != nil {
		log.Fatalf("converting %s: %v", input, err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		log.Fatalf("writing output: %v", err)
	}
	log.Printf("written %s (%d bytes)", path, len(out))
}

// outputPath returns the file to write: `output` when given, or the
// input file with the extension of the output format.
// The standard input has no default output.
func outputPath(input, output string, raster bool, format string) (string, error) {
	if output != "" {
		return output, nil
	}
	if input == "-" {
		return "", errors.New("reading from the standard input requires -o")
	}
	ext := ".pdf"
	if raster {
		ext = "." + svgraster.ParseFormat(format).String()
	}
	return defaultOutput(input, ext), nil
}

func defaultOutput(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

// readSource reads the file, or the standard input for "-"
func readSource(path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	return string(b), err
}

func readConfig(path string, opts interface{}) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading options: %w", err)
	}
	if err = json.Unmarshal(b, opts); err != nil {
		return fmt.Errorf("invalid options %s: %w", path, err)
	}
	return nil
}

func isSet(name string) (set bool) {
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// setFlag overrides the option when the flag has been given
func setFlag[T any](field **T, v T, given bool) {
	if given {
		*field = &v
	}
}

func parseRGB(s string) ([3]uint8, error) {
	var rgb [3]uint8
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || len(b) != 3 {
		return rgb, fmt.Errorf("invalid background color %q (expected rrggbb)", s)
	}
	copy(rgb[:], b)
	return rgb, nil
}
