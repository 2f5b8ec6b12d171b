package layered

import (
	"errors"
	"fmt"
	"io"

	"github.com/oov/psd"
)

// ErrEmptyCanvas is returned for documents with a zero-sized canvas.
var ErrEmptyCanvas = errors.New("document has an empty canvas")

// Decode reads a PSD or PSB document from r.
func Decode(r io.Reader) (doc *Document, err error) {
	// The parser indexes straight into channel data; truncated files from
	// an editor still writing can make it panic.
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("malformed document: %v", rec)
		}
	}()

	p, _, err := psd.Decode(r, &psd.DecodeOptions{})
	if err != nil {
		return nil, err
	}

	if p.Config.Rect.Empty() {
		return nil, ErrEmptyCanvas
	}

	return &Document{
		Bounds: p.Config.Rect,
		Layers: convertLayers(p.Layer),
		Merged: p.Picker,
	}, nil
}

func convertLayers(in []psd.Layer) []Layer {
	if len(in) == 0 {
		return nil
	}

	out := make([]Layer, 0, len(in))

	for i := range in {
		l := &in[i]

		name := l.UnicodeName
		if name == "" {
			name = l.Name
		}

		out = append(out, Layer{
			Name:     name,
			Rect:     l.Rect,
			Image:    l.Picker,
			Opacity:  l.Opacity,
			Visible:  l.Visible(),
			Group:    l.Folder(),
			Children: convertLayers(l.Layer),
		})
	}

	return out
}
