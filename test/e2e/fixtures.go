package e2e

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
)

// SupportedImageFormats lists the upload formats fixtures are generated for.
// WebP is decoded by the service but x/image ships no encoder for it.
var SupportedImageFormats = []string{"png", "jpeg", "gif", "bmp"}

// LeafImage returns a synthetic w x h leaf-green image with a darker lesion.
func LeafImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 40, G: 150, B: 50, A: 255}
			if (x-w/2)*(x-w/2)+(y-h/2)*(y-h/2) < (w*w)/25 {
				c = color.RGBA{R: 110, G: 80, B: 30, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// EncodeImage encodes img in the named format.
func EncodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("unsupported fixture format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
