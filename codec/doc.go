// Package codec reads and writes the rasters that flow through the decode
// chain.
//
// Two backends exist. The Imaging backend is pure Go and built on
// github.com/disintegration/imaging; it understands JPEG, PNG, GIF, TIFF,
// BMP and the Netpbm family (PPM/PGM, 8 and 16 bit), which covers every
// intermediate the external RAW tools emit. Building with the opencv tag
// switches Default to the OpenCV backend, which reads and writes through
// gocv's imgcodecs bindings.
//
// Output format is chosen from the destination extension. Paths with an
// unrecognized extension are written as JPEG.
package codec
