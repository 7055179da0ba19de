package scanning

import (
	"image"
	"image/color"
)

// Enhance prepares a photographed bill for OCR: it converts the image to
// grayscale, stretches its contrast and binarises it with Otsu's threshold.
// The result is always PNG.
func Enhance(data []byte, contentType string) ([]byte, error) {
	img, err := decodeImage(data, contentType)
	if err != nil {
		return nil, err
	}

	gray := toGray(img)
	stretchContrast(gray)
	binarize(gray, otsuThreshold(gray))

	return encodePNG(gray)
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return gray
}

func histogram(gray *image.Gray) [256]int {
	var h [256]int
	for _, v := range gray.Pix {
		h[v]++
	}
	return h
}

// stretchContrast maps the 1st..99th percentile range onto 0..255
func stretchContrast(gray *image.Gray) {
	total := len(gray.Pix)
	if total == 0 {
		return
	}
	h := histogram(gray)
	cut := total / 100

	lo, seen := 0, 0
	for ; lo < 255; lo++ {
		seen += h[lo]
		if seen > cut {
			break
		}
	}
	hi, seen := 255, 0
	for ; hi > 0; hi-- {
		seen += h[hi]
		if seen > cut {
			break
		}
	}
	if hi <= lo {
		return
	}

	var lut [256]uint8
	for v := range lut {
		switch {
		case v <= lo:
			lut[v] = 0
		case v >= hi:
			lut[v] = 255
		default:
			lut[v] = uint8((v - lo) * 255 / (hi - lo))
		}
	}
	for i, v := range gray.Pix {
		gray.Pix[i] = lut[v]
	}
}

// otsuThreshold picks the level that maximises between-class variance
func otsuThreshold(gray *image.Gray) uint8 {
	h := histogram(gray)
	total := len(gray.Pix)

	var sum float64
	for v, n := range h {
		sum += float64(v * n)
	}

	var (
		sumBackground float64
		weightBg      int
		best          float64
		threshold     uint8
	)
	for v, n := range h {
		weightBg += n
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBackground += float64(v * n)
		meanBg := sumBackground / float64(weightBg)
		meanFg := (sum - sumBackground) / float64(weightFg)
		between := float64(weightBg) * float64(weightFg) * (meanBg - meanFg) * (meanBg - meanFg)
		if between > best {
			best = between
			threshold = uint8(v)
		}
	}
	return threshold
}

func binarize(gray *image.Gray, threshold uint8) {
	for i, v := range gray.Pix {
		if v > threshold {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
}
