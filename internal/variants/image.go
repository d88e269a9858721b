package variants

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"

	// Register webp decoding; imaging itself covers jpeg, png, gif, tiff
	// and bmp.
	_ "golang.org/x/image/webp"
)

// decode reads and orients the source image. EXIF orientation is applied so
// derivatives render upright. Undecodable input is a ContentError.
func decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ContentError{Reason: "decode failed", Err: err}
	}
	return img, nil
}

// renderThumb produces a square center-cropped thumbnail.
func renderThumb(img image.Image) image.Image {
	out := imaging.Fill(flatten(img), ThumbSize, ThumbSize, imaging.Center, imaging.Lanczos)
	return imaging.Sharpen(out, 0.5)
}

// renderMedium produces a width-bounded rendition. Images already within the
// bound are re-encoded without resizing; upscaling is never done.
func renderMedium(img image.Image) image.Image {
	out := flatten(img)
	if out.Bounds().Dx() > MediumMaxWidth {
		out = imaging.Resize(out, MediumMaxWidth, 0, imaging.Lanczos)
	}
	return imaging.Sharpen(out, 0.5)
}

// flatten composites the image over a white background so transparency does
// not turn black in JPEG output.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	bg := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.OverlayCenter(bg, img, 1.0)
}

// encodeJPEG renders the image as JPEG at the given quality.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
