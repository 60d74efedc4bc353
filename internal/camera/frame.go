package camera

import (
	"image"
)

// MirrorHorizontal flips a frame around its vertical axis. Front-facing
// captures are mirrored so the saved still matches the preview the user
// framed.
func MirrorHorizontal(src image.Image) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(bounds.Max.X-1-(x-bounds.Min.X), y, src.At(x, y))
		}
	}

	return dst
}
