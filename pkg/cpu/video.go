package cpu

import (
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"gohack/pkg/grid"
)

const (
	ScreenWidth  = 512
	ScreenHeight = 256

	wordsPerRow = ScreenWidth / 16
)

var (
	inkRGBA   = [4]byte{0x00, 0x00, 0x00, 0xFF}
	paperRGBA = [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
)

// PixelAt reports whether the screen pixel at (x, y) is set.
func (c *CPU) PixelAt(x, y int) bool {
	word := c.RAM[int(ScreenBase)+y*wordsPerRow+x/16]
	return word&(1<<(x%16)) != 0
}

// GetFramebufferRGBA decodes the screen memory map into a 512×256 RGBA8888
// byte slice. Bit 0 of each word is the leftmost of its 16 pixels.
func (c *CPU) GetFramebufferRGBA() []byte {
	pixels := make([]byte, ScreenWidth*ScreenHeight*4)

	for wordIdx := 0; wordIdx < ScreenWords; wordIdx++ {
		col, row := grid.GetGridCoords(wordIdx, wordsPerRow)
		word := c.RAM[int(ScreenBase)+wordIdx]
		for bit := 0; bit < 16; bit++ {
			color := paperRGBA
			if word&(1<<bit) != 0 {
				color = inkRGBA
			}
			pixelIdx := (row*ScreenWidth + col*16 + bit) * 4
			copy(pixels[pixelIdx:pixelIdx+4], color[:])
		}
	}

	return pixels
}

// GetFramebufferImage returns the screen as an *image.RGBA.
func (c *CPU) GetFramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    c.GetFramebufferRGBA(),
		Stride: ScreenWidth * 4,
		Rect:   image.Rect(0, 0, ScreenWidth, ScreenHeight),
	}
}

// ScaledFramebufferImage returns the screen enlarged by an integer factor
// with nearest neighbour sampling.
func (c *CPU) ScaledFramebufferImage(scale int) *image.RGBA {
	src := c.GetFramebufferImage()
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, ScreenWidth*scale, ScreenHeight*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SaveScreenshot encodes the screen as a PNG and writes it to filename.
func (c *CPU) SaveScreenshot(filename string, scale int) error {
	img := c.ScaledFramebufferImage(scale)
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
