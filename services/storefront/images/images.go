// Package images validates admin uploads and shrinks them before storage.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"slices"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const MaxFileSize = 5 * 1024 * 1024

// MaxDimension bounds each side of a decoded upload. A few KB of PNG can
// declare a canvas of gigabytes, so the header is checked before decoding.
const MaxDimension = 10000

var AllowedTypes = []string{"image/png", "image/jpeg", "image/jpg", "image/webp"}

var (
	ErrInvalidType = errors.New("Invalid file type. Please upload PNG, JPG, or WEBP images only.")
	ErrTooLarge    = errors.New("File size too large. Please upload images smaller than 5MB.")
	ErrDimensions  = errors.New("Image dimensions too large. Please upload images up to 10000 pixels per side.")
	ErrProcess     = errors.New("Failed to process image")
)

// Options bound the output image.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

var DefaultOptions = Options{MaxWidth: 800, MaxHeight: 800, Quality: 85}

// Upload is a file received from the admin form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// ReadUpload reads a multipart file, refusing to buffer more than MaxFileSize.
func ReadUpload(fh *multipart.FileHeader) (*Upload, error) {
	if fh.Size > MaxFileSize {
		return nil, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// DetectContentType sniffs data; the declared type is used only when the
// bytes are not recognised.
func DetectContentType(data []byte, declared string) string {
	if mt := mimetype.Detect(data); mt.Is("image/png") || mt.Is("image/jpeg") || mt.Is("image/webp") {
		return mt.String()
	}
	return declared
}

func Validate(contentType string, size int64) error {
	if !slices.Contains(AllowedTypes, contentType) {
		return ErrInvalidType
	}
	if size > MaxFileSize {
		return ErrTooLarge
	}
	return nil
}

// Fit returns the size of a w×h image scaled down to fit in maxW×maxH,
// keeping the aspect ratio. Images already inside the box are untouched.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return max(1, int(float64(w)*ratio)), max(1, int(float64(h)*ratio))
}

// Compress decodes a PNG, JPEG or WEBP image, shrinks it to fit the options
// and re-encodes it. PNG input stays PNG; everything else becomes JPEG.
func Compress(data []byte, opts Options) ([]byte, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProcess, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, "", ErrDimensions
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProcess, err)
	}

	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)
	dst := src
	if w != b.Dx() || h != b.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if format == "png" {
		if err := png.Encode(&buf, dst); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrProcess, err)
		}
		return buf.Bytes(), "image/png", nil
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultOptions.Quality
	}
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProcess, err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// Process runs the full pipeline: sniff, validate, compress.
func Process(up *Upload, opts Options) ([]byte, string, error) {
	contentType := DetectContentType(up.Data, up.ContentType)
	if err := Validate(contentType, up.Size); err != nil {
		return nil, "", err
	}
	return Compress(up.Data, opts)
}
