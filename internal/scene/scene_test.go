package scene

import (
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/xcomp/internal/compositor"
	"github.com/1broseidon/xcomp/internal/headless"
)

func quietOptions() compositor.Options {
	return compositor.Options{
		OpacityProperty: headless.OpacityProperty,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func assertColor(t *testing.T, got, want color.RGBA) {
	t.Helper()
	if !near(got.R, want.R) || !near(got.G, want.G) || !near(got.B, want.B) || !near(got.A, want.A) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

const layered = `
screen: {width: 64, height: 48}
windows:
  - name: editor
    x: 4
    y: 4
    width: 30
    height: 20
    color: "#ff0000"
  - name: overlay
    x: 20
    y: 10
    width: 30
    height: 20
    color: "#0000ff"
    opacity: 0.5
  - name: hidden
    x: 0
    y: 30
    width: 10
    height: 10
    color: "#00ff00"
    unmapped: true
`

func TestRender_LayeredScene(t *testing.T) {
	s, err := Parse([]byte(layered))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	res, err := Render(s, quietOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Frames < 2 {
		t.Fatalf("expected at least the startup frame and one more, got %d", res.Frames)
	}

	img := res.Image
	assertColor(t, img.RGBAAt(1, 1), color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
	assertColor(t, img.RGBAAt(6, 6), color.RGBA{R: 0xff, A: 0xff})
	// Half-transparent blue over red.
	assertColor(t, img.RGBAAt(25, 15), color.RGBA{R: 0x80, B: 0x7f, A: 0xff})
	// Half-transparent blue over the background.
	assertColor(t, img.RGBAAt(45, 25), color.RGBA{R: 0x40, G: 0x40, B: 0xbf, A: 0xff})
	// Unmapped windows are not drawn.
	assertColor(t, img.RGBAAt(5, 35), color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
}

func TestRender_WallpaperAndShape(t *testing.T) {
	s, err := Parse([]byte(`
screen: {width: 40, height: 40}
wallpaper: "#204060"
windows:
  - x: 0
    y: 0
    width: 40
    height: 40
    color: "#ffffff"
    shape: {x: 0, y: 0, width: 20, height: 40}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	res, err := Render(s, quietOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	assertColor(t, res.Image.RGBAAt(5, 5), color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	assertColor(t, res.Image.RGBAAt(30, 5), color.RGBA{R: 0x20, G: 0x40, B: 0x60, A: 0xff})
}

func TestRender_OpacityIgnoredWhenDisabled(t *testing.T) {
	s, err := Parse([]byte(layered))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts := quietOptions()
	opts.OpacityProperty = ""

	res, err := Render(s, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	assertColor(t, res.Image.RGBAAt(25, 15), color.RGBA{B: 0xff, A: 0xff})
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "screen: {width: 10, height: 10}\nbogus: 1\n",
		"empty screen":  "windows: []\n",
		"bad color":     "screen: {width: 10, height: 10}\nwindows:\n  - {width: 2, height: 2, color: red}\n",
		"zero size":     "screen: {width: 10, height: 10}\nwindows:\n  - {width: 0, height: 2, color: \"#ffffff\"}\n",
		"opacity range": "screen: {width: 10, height: 10}\nwindows:\n  - {width: 2, height: 2, color: \"#ffffff\", opacity: 2}\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadAndWritePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(layered)+"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := Render(s, quietOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	out := filepath.Join(dir, "out.png")
	if err := WritePNG(res.Image, out); err != nil {
		t.Fatalf("write png: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#11223344")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != (color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}) {
		t.Fatalf("unexpected color %v", c)
	}
	c, err = ParseColor("#112233")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.A != 0xff {
		t.Fatalf("expected opaque, got %v", c)
	}
}
