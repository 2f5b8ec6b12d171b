// Package layered models a layered-image document and flattens its visible
// layers into a single raster.
//
// Layers are ordered bottom-most first: each layer is composited over the
// result of every layer before it. Hidden layers, and every layer inside a
// hidden group, are skipped. Layer opacity scales the layer's own alpha, and
// group opacity multiplies into the opacity of its children.
//
// Only normal compositing is implemented. Other blend modes, layer masks and
// clipping groups are drawn as plain normal layers.
package layered

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Layer is one entry of the layer stack.
type Layer struct {
	Name string

	// Rect is the layer's placement on the canvas.
	Rect image.Rectangle

	// Image holds the layer pixels. It is nil for empty layers and groups.
	Image image.Image

	// Opacity is 0 (transparent) to 255 (opaque).
	Opacity uint8

	Visible bool

	// Group marks a layer folder; its content lives in Children.
	Group    bool
	Children []Layer
}

// Document is a decoded layered image.
type Document struct {
	// Bounds is the canvas rectangle.
	Bounds image.Rectangle

	// Layers is the layer stack, bottom-most first.
	Layers []Layer

	// Merged is the composite stored by the authoring application, if any.
	// It is used when the document carries no layers.
	Merged image.Image
}

// Flatten composites the visible layers of doc over a canvas filled with
// background. Pass color.Transparent to keep transparency.
func Flatten(doc *Document, background color.Color) *image.NRGBA {
	canvas := imaging.New(doc.Bounds.Dx(), doc.Bounds.Dy(), background)

	if len(doc.Layers) == 0 {
		if doc.Merged == nil {
			return canvas
		}

		return imaging.Overlay(canvas, doc.Merged, doc.Merged.Bounds().Min.Sub(doc.Bounds.Min), 1)
	}

	for _, l := range doc.Layers {
		canvas = composite(canvas, l, doc.Bounds.Min, 1)
	}

	return canvas
}

func composite(canvas *image.NRGBA, l Layer, origin image.Point, parentOpacity float64) *image.NRGBA {
	if !l.Visible {
		return canvas
	}

	opacity := parentOpacity * float64(l.Opacity) / 255
	if opacity <= 0 {
		return canvas
	}

	if l.Group {
		for _, child := range l.Children {
			canvas = composite(canvas, child, origin, opacity)
		}

		return canvas
	}

	if l.Image == nil || l.Image.Bounds().Empty() {
		return canvas
	}

	pos := l.Rect.Min
	if l.Rect.Empty() {
		pos = l.Image.Bounds().Min
	}

	return imaging.Overlay(canvas, l.Image, pos.Sub(origin), opacity)
}
