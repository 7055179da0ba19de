package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ErrUnsupportedFormat is returned for uploads that are not PDF, PNG, JPEG, GIF or HEIC
var ErrUnsupportedFormat = errors.New("unsupported image format")

// heicBrands are the ftyp brands written by phone cameras
var heicBrands = map[string]bool{"heic": true, "heix": true, "heif": true, "mif1": true, "msf1": true}

func normalizeMIME(contentType string) string {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" {
		return "image/jpeg"
	}
	return mime
}

func isPDF(data []byte, mime string) bool {
	return mime == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF-"))
}

func isHEIC(data []byte, mime string) bool {
	if strings.Contains(mime, "heic") || strings.Contains(mime, "heif") {
		return true
	}
	return len(data) >= 12 && string(data[4:8]) == "ftyp" && heicBrands[string(data[8:12])]
}

// decodeImage decodes a receipt upload. Only the first page of a PDF is read.
func decodeImage(data []byte, contentType string) (image.Image, error) {
	mime := normalizeMIME(contentType)

	switch {
	case isPDF(data, mime):
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("opening pdf: %w", err)
		}
		defer doc.Close()

		img, err := doc.Image(0)
		if err != nil {
			return nil, fmt.Errorf("rendering pdf page: %w", err)
		}
		return img, nil

	case isHEIC(data, mime):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding heic: %w", err)
		}
		return img, nil

	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, mime)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
		return img, nil
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// toPNG returns the upload as PNG bytes, converting anything that is not already PNG
func toPNG(data []byte, contentType string) ([]byte, error) {
	mime := normalizeMIME(contentType)
	if mime == "image/png" && !isHEIC(data, mime) && !isPDF(data, mime) {
		return data, nil
	}

	img, err := decodeImage(data, contentType)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}
