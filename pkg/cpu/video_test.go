package cpu

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPixelAtAndFramebuffer(t *testing.T) {
	c := NewCPU()
	c.RAM[ScreenBase] = 0x0001            // (0,0)
	c.RAM[int(ScreenBase)+33] = 1 << 15   // row 1, word 1, bit 15 -> (31,1)
	c.RAM[int(ScreenBase)+8191] = 1 << 15 // (511,255)

	set := [][2]int{{0, 0}, {31, 1}, {511, 255}}
	for _, p := range set {
		if !c.PixelAt(p[0], p[1]) {
			t.Errorf("PixelAt(%d, %d) = false; want true", p[0], p[1])
		}
	}
	if c.PixelAt(1, 0) {
		t.Error("PixelAt(1, 0) = true; want false")
	}

	pix := c.GetFramebufferRGBA()
	if len(pix) != ScreenWidth*ScreenHeight*4 {
		t.Fatalf("len(pix) = %d", len(pix))
	}
	for _, p := range set {
		i := (p[1]*ScreenWidth + p[0]) * 4
		if pix[i] != 0 || pix[i+3] != 0xFF {
			t.Errorf("pixel (%d,%d) = %v; want black", p[0], p[1], pix[i:i+4])
		}
	}
	if pix[4] != 0xFF {
		t.Errorf("pixel (1,0) red = %d; want 255", pix[4])
	}
}

func TestSaveScreenshotScaled(t *testing.T) {
	c := NewCPU()
	c.RAM[ScreenBase] = 0xFFFF

	path := filepath.Join(t.TempDir(), "screen.png")
	if err := c.SaveScreenshot(path, 2); err != nil {
		t.Fatalf("SaveScreenshot: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != ScreenWidth*2 || b.Dy() != ScreenHeight*2 {
		t.Errorf("bounds = %v; want %dx%d", b, ScreenWidth*2, ScreenHeight*2)
	}
	if r, _, _, _ := img.At(31, 1).RGBA(); r != 0 {
		t.Errorf("scaled pixel (31,1) red = %d; want 0", r)
	}
	if r, _, _, _ := img.At(32, 0).RGBA(); r == 0 {
		t.Error("scaled pixel (32,0) is black; want white")
	}
}
