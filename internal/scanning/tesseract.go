package scanning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

const tesseractTimeout = 60 * time.Second

// Runner runs an external command, feeding stdin and capturing both outputs
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Tesseract reads receipts with a local tesseract binary
type Tesseract struct {
	binary string
	lang   string
	runner Runner
}

// NewTesseract uses the tesseract binary on PATH with English by default
func NewTesseract(binary, lang string) *Tesseract {
	return NewTesseractWithRunner(binary, lang, execRunner{})
}

// NewTesseractWithRunner uses runner to invoke the binary
func NewTesseractWithRunner(binary, lang string, runner Runner) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{binary: binary, lang: lang, runner: runner}
}

// ExtractText pipes the receipt as PNG through tesseract's TSV output, which
// carries both the words and their confidences in one pass.
func (t *Tesseract) ExtractText(ctx context.Context, data []byte, contentType string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, tesseractTimeout)
	defer cancel()

	pngData, err := toPNG(data, contentType)
	if err != nil {
		return nil, err
	}

	// tesseract stdin stdout -l <lang> tsv
	out, stderr, err := t.runner.Run(ctx, bytes.NewReader(pngData), t.binary, "stdin", "stdout", "-l", t.lang, "tsv")
	if err != nil {
		return nil, fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(string(stderr)))
	}

	text, confidence := parseTSV(out)
	return &Result{
		Text:       text,
		Engine:     EngineTesseract,
		Confidence: confidence,
	}, nil
}

// Close is a no-op; every scan starts its own process
func (t *Tesseract) Close() error {
	return nil
}
