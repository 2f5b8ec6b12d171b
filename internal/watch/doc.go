// Package watch keeps rendered rasters in sync with their layered-image
// sources. It subscribes to filesystem events below the watch root,
// debounces bursts per path, and hands each settled path to a scheduler
// that runs at most one conversion per path at a time.
package watch
