package soft

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Image converts the texture's first layer to 8-bit RGBA, clamping to [0, 1].
func (t *Texture) Image() *image.NRGBA {
	w, h := t.desc.Width, t.desc.Height
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := t.Texel(x, y, 0)
			img.SetNRGBA(x, y, color.NRGBA{
				R: unorm8(v.X()),
				G: unorm8(v.Y()),
				B: unorm8(v.Z()),
				A: unorm8(v.W()),
			})
		}
	}
	return img
}

// Image returns the default framebuffer as an image.
func (e *Engine) Image() *image.NRGBA {
	return e.defaultFB.Image()
}

// Thumbnail scales the default framebuffer to fit inside maxEdge pixels.
func (e *Engine) Thumbnail(maxEdge int) *image.NRGBA {
	src := e.Image()
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return src
	}
	tw, th := maxEdge, maxEdge
	if w > h {
		th = max(1, h*maxEdge/w)
	} else {
		tw = max(1, w*maxEdge/h)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func unorm8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
