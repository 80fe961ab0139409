// Package barcode decodes QR codes (and other symbologies) from in-memory images.
//
// Two backends share the Decoder interface:
//
//   - the primary decoder, gozxing's multi-symbol QR reader that returns every
//     QR payload in the image, followed by one pass of the per-format readers
//     for the other configured symbologies;
//   - the fallback decoder, a single-symbol QR detector with its own finder
//     pattern localisation. It never reports errors; a failed decode is an
//     empty result.
//
// The default fallback is pure Go (gozxing). Build with the `opencv` tag to
// use OpenCV's QRCodeDetector through gocv instead:
//
//	go build -tags=opencv ./...
package barcode
