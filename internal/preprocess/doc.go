// Package preprocess produces derived candidate images for barcode decoding.
//
// Every function here is pure: the source image is never modified and a new
// image is returned. Functions that can fail on degenerate input return an
// error wrapped in utils.ImageProcessingError so callers can skip the
// candidate and keep going.
package preprocess
