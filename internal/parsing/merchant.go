package parsing

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownMerchant is used when nothing in the text names the seller
const UnknownMerchant = "Unknown Merchant"

const maxMerchantLineLen = 50

// ExtractMerchant resolves the merchant name. A caller hint wins, then the
// first catalog merchant mentioned in the text, then a short first line.
func ExtractMerchant(t Text, hint string, rules *Rules) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		return titleCase(hint)
	}

	for _, merchant := range rules.merchants {
		if strings.Contains(t.Lower, merchant) {
			return titleCase(merchant)
		}
	}

	for _, line := range strings.Split(t.Original, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) < maxMerchantLineLen {
			return line
		}
		break
	}

	return UnknownMerchant
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
