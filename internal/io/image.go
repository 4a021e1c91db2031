package ioutils

import (
	"bytes"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	_ "golang.org/x/image/bmp"  // BMP decoder registration
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ImageService provides image processing operations for cover art.
//
// ImageService is used to:
//   - Decode fetched artwork (JPEG, PNG, GIF, BMP, WebP)
//   - Resize images to fit maximum dimensions (for embedding in MP3 or saving)
//   - Convert images to JPEG format (for better compatibility)
//
// Example usage:
//
//	svc := NewImageService()
//
//	img, format, err := svc.Decode(artworkData)
//	small := svc.Resize(img, 500, 500)
//	data, err := svc.EncodeJPEG(small)
type ImageService struct {
	// Quality is the JPEG quality used when encoding, 1-100.
	Quality int
}

// NewImageService creates a new ImageService encoding at quality 90.
func NewImageService() *ImageService {
	return &ImageService{Quality: 90}
}

// Decode decodes image data in any registered format and returns the
// image with its format name ("jpeg", "png", "gif", "bmp" or "webp").
func (s *ImageService) Decode(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}

// Resize scales img to fit within maxWidth x maxHeight, preserving the
// aspect ratio. Images already within bounds are returned unchanged.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
//	// A 1500x1000 image becomes 1000x666
//	// A 800x600 image is returned as is
//	resized := svc.Resize(img, 1000, 1000)
func (s *ImageService) Resize(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxWidth && height <= maxHeight {
		return img
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		// Width is the limiting factor
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EncodeJPEG encodes img as JPEG at the service quality.
func (s *ImageService) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResizeImage decodes data, resizes it to fit within the maximum
// dimensions and returns it JPEG-encoded.
//
// Example:
//
//	resized, err := svc.ResizeImage(imageData, 1000, 1000)
func (s *ImageService) ResizeImage(data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := s.Decode(data)
	if err != nil {
		return nil, err
	}
	return s.EncodeJPEG(s.Resize(img, maxWidth, maxHeight))
}

// ConvertToJPEG converts an image to JPEG format.
//
// Note: If the input is already JPEG, it will be re-encoded, which may
// slightly change file size but ensures consistent encoding.
//
// Example:
//
//	jpegData, err := svc.ConvertToJPEG(pngData)
func (s *ImageService) ConvertToJPEG(data []byte) ([]byte, error) {
	img, _, err := s.Decode(data)
	if err != nil {
		return nil, err
	}
	return s.EncodeJPEG(img)
}
