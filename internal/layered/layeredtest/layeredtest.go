// Package layeredtest builds small PSD files for tests.
package layeredtest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"os"
	"testing"
)

// Layer describes one layer for EncodeLayered. A Layer with Group set is
// written as a folder holding Children.
type Layer struct {
	Name     string
	Image    *image.NRGBA
	At       image.Point
	Opacity  uint8
	Hidden   bool
	Group    bool
	Children []Layer
}

// Section divider types.
const (
	sectionNone    = 0
	sectionOpen    = 1
	sectionDivider = 3
)

type record struct {
	name    string
	rect    image.Rectangle
	img     *image.NRGBA
	opacity uint8
	hidden  bool
	section uint32
}

// EncodeFlat returns a layerless 8-bit RGB PSD whose merged composite is img.
// Alpha is dropped; callers should pass opaque images.
func EncodeFlat(img image.Image) []byte {
	b := img.Bounds()

	var buf bytes.Buffer

	writeHeader(&buf, b.Dx(), b.Dy())
	put(&buf, uint32(0)) // layer and mask info
	writeMerged(&buf, img)

	return buf.Bytes()
}

// EncodeLayered returns an 8-bit RGB PSD of size w×h carrying layers in
// bottom-first order. The merged composite is left black so that decoders
// falling back to it are detectable.
func EncodeLayered(w, h int, layers []Layer) []byte {
	var records []record
	for _, l := range layers {
		records = appendRecords(records, l)
	}

	var info bytes.Buffer

	put(&info, int16(len(records)))

	for _, r := range records {
		writeRecord(&info, r)
	}

	for _, r := range records {
		writeChannels(&info, r)
	}

	if info.Len()%2 != 0 {
		info.WriteByte(0)
	}

	var buf bytes.Buffer

	writeHeader(&buf, w, h)
	put(&buf, uint32(4+info.Len()+4))
	put(&buf, uint32(info.Len()))
	buf.Write(info.Bytes())
	put(&buf, uint32(0)) // global layer mask info
	writeMerged(&buf, image.NewNRGBA(image.Rect(0, 0, w, h)))

	return buf.Bytes()
}

// WriteLayered writes EncodeLayered(w, h, layers) to path.
func WriteLayered(t *testing.T, path string, w, h int, layers []Layer) {
	t.Helper()

	if err := os.WriteFile(path, EncodeLayered(w, h, layers), 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("writing %s: %v", path, err)
	}
}

// appendRecords flattens l into file order: a folder is stored as its
// closing divider, then its children, then the folder record itself.
func appendRecords(out []record, l Layer) []record {
	if !l.Group {
		r := record{name: l.Name, img: l.Image, opacity: l.Opacity, hidden: l.Hidden}
		if l.Image != nil {
			r.rect = image.Rectangle{Min: l.At, Max: l.At.Add(l.Image.Bounds().Size())}
		}

		return append(out, r)
	}

	out = append(out, record{name: "</Layer group>", opacity: 255, section: sectionDivider})
	for _, c := range l.Children {
		out = appendRecords(out, c)
	}

	return append(out, record{name: l.Name, opacity: l.Opacity, hidden: l.Hidden, section: sectionOpen})
}

func writeHeader(buf *bytes.Buffer, w, h int) {
	buf.WriteString("8BPS")
	put(buf, uint16(1)) // version
	buf.Write(make([]byte, 6))
	put(buf, uint16(3)) // channels
	put(buf, uint32(h))
	put(buf, uint32(w))
	put(buf, uint16(8)) // depth
	put(buf, uint16(3)) // RGB

	put(buf, uint32(0)) // color mode data
	put(buf, uint32(0)) // image resources
}

func writeMerged(buf *bytes.Buffer, img image.Image) {
	b := img.Bounds()

	put(buf, uint16(0)) // raw

	for c := 0; c < 3; c++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				buf.WriteByte([]uint8{px.R, px.G, px.B}[c])
			}
		}
	}
}

// channelIDs lists alpha then R, G, B.
var channelIDs = []int16{-1, 0, 1, 2}

func writeRecord(buf *bytes.Buffer, r record) {
	put(buf, int32(r.rect.Min.Y))
	put(buf, int32(r.rect.Min.X))
	put(buf, int32(r.rect.Max.Y))
	put(buf, int32(r.rect.Max.X))

	put(buf, uint16(len(channelIDs)))

	for _, id := range channelIDs {
		put(buf, id)
		put(buf, uint32(2+r.rect.Dx()*r.rect.Dy()))
	}

	buf.WriteString("8BIM")
	buf.WriteString("norm")
	buf.WriteByte(r.opacity)
	buf.WriteByte(0) // clipping

	var flags byte
	if r.hidden {
		flags |= 2
	}

	buf.WriteByte(flags)
	buf.WriteByte(0) // filler

	var extra bytes.Buffer

	put(&extra, uint32(0)) // layer mask data
	put(&extra, uint32(0)) // blending ranges
	writePascal(&extra, r.name)

	if r.section != sectionNone {
		extra.WriteString("8BIM")
		extra.WriteString("lsct")
		put(&extra, uint32(12))
		put(&extra, r.section)
		extra.WriteString("8BIM")
		extra.WriteString("norm")
	}

	put(buf, uint32(extra.Len()))
	buf.Write(extra.Bytes())
}

func writeChannels(buf *bytes.Buffer, r record) {
	for _, id := range channelIDs {
		put(buf, uint16(0)) // raw

		for y := 0; y < r.rect.Dy(); y++ {
			for x := 0; x < r.rect.Dx(); x++ {
				px := r.img.NRGBAAt(r.img.Rect.Min.X+x, r.img.Rect.Min.Y+y)

				switch id {
				case -1:
					buf.WriteByte(px.A)
				case 0:
					buf.WriteByte(px.R)
				case 1:
					buf.WriteByte(px.G)
				case 2:
					buf.WriteByte(px.B)
				}
			}
		}
	}
}

// writePascal writes a length-prefixed name padded to a multiple of four.
func writePascal(buf *bytes.Buffer, s string) {
	if len(s) > 255 {
		s = s[:255]
	}

	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)

	for n := 1 + len(s); n%4 != 0; n++ {
		buf.WriteByte(0)
	}
}

// Solid returns an opaque w×h image filled with c.
func Solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	return img
}

// Gradient returns an opaque w×h image with distinct pixel values.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: uint8((x + y) * 8), A: 255})
		}
	}

	return img
}

// WriteFlat writes EncodeFlat(img) to path.
func WriteFlat(t *testing.T, path string, img image.Image) {
	t.Helper()

	if err := os.WriteFile(path, EncodeFlat(img), 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("writing %s: %v", path, err)
	}
}

func put(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.BigEndian, v)
}
