// Package output encodes flattened rasters and writes them to disk.
//
// The package is organized around two concerns:
//
//   - Formats (registry.go): named raster formats with their file extension,
//     alpha support and encoder, collected in a [Registry].
//
//   - Writers (writer.go): the [Writer] interface and [AtomicWriter], which
//     writes to a temporary file next to the destination and renames it into
//     place so a reader never observes a partial image.
package output
