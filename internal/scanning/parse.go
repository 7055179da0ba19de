package scanning

import (
	"regexp"
	"strconv"
	"strings"
)

// transcriptionPrompt is shared by the vision LLM backends. The model is asked
// to act as an OCR engine only; interpretation happens in the parsing package.
const transcriptionPrompt = `You are an OCR engine. Transcribe every piece of text printed on this receipt, bill or payment screenshot exactly as it appears.

Rules:
- Keep the original line breaks: one printed line per output line, top to bottom.
- Keep currency symbols (₹, Rs, $), minus signs, decimal points and thousands separators exactly as printed.
- Keep quantities such as "2x" or "2 x" attached to their line.
- Do not summarise, translate, correct spelling, reorder or add anything.
- Do not wrap the output in markdown or code blocks.
- If the image contains no readable text, return an empty response.`

var (
	fenceLine   = regexp.MustCompile("^```[a-zA-Z]*$")
	dateLike    = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{1,2}\s+(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
	currencyish = regexp.MustCompile(`₹|(?i:\brs\.?\s*\d)|(?i:\binr\b)`)
	amountLike  = regexp.MustCompile(`\d+\.\d{2}\b`)
)

// cleanTranscript strips markdown fences and trailing whitespace an LLM may
// add around the transcription, keeping line structure intact.
func cleanTranscript(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if fenceLine.MatchString(strings.TrimSpace(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// heuristicConfidence scores text from backends that report no confidence of
// their own, by looking for the artefacts every bill carries.
func heuristicConfidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	score := 0.2
	if dateLike.MatchString(text) {
		score += 0.2
	}
	if currencyish.MatchString(text) {
		score += 0.2
	}
	if amountLike.MatchString(text) {
		score += 0.2
	}
	if len(text) > 120 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// tsvLineKey groups tesseract words into printed lines
type tsvLineKey struct {
	page, block, par, line string
}

// parseTSV rebuilds the text of a tesseract TSV report line by line and
// returns the mean word confidence scaled to 0..1.
func parseTSV(out []byte) (string, float64) {
	var (
		lines   []string
		current tsvLineKey
		words   []string
		sum     float64
		n       int
	)
	flush := func() {
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
			words = nil
		}
	}

	for i, row := range strings.Split(string(out), "\n") {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(row, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf <= 0 || word == "" {
			continue
		}

		key := tsvLineKey{cols[1], cols[2], cols[3], cols[4]}
		if key != current {
			flush()
			current = key
		}
		words = append(words, word)
		sum += conf
		n++
	}
	flush()

	if n == 0 {
		return "", 0
	}
	return strings.Join(lines, "\n"), sum / float64(n) / 100
}
