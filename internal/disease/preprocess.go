package disease

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultImageSize is the square input resolution of the disease model.
const DefaultImageSize = 224

// Decode reads an image in any registered format (JPEG, PNG, GIF, BMP, WebP).
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image (%d bytes): %w", len(data), err)
	}
	return img, format, nil
}

// Preprocess resizes img to size×size with nearest-neighbour sampling, drops
// alpha, and returns RGB values scaled to [0,1] in NHWC order for a batch of one.
func Preprocess(img image.Image, size int) []float32 {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	out := make([]float32, 0, size*size*3)
	for y := 0; y < size; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+size*4]
		for x := 0; x < size; x++ {
			px := row[x*4 : x*4+3]
			out = append(out, float32(px[0])/255, float32(px[1])/255, float32(px[2])/255)
		}
	}
	return out
}
