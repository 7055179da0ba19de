package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	numericDate = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)
	textualDate = regexp.MustCompile(`(?i)(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s+(\d{2,4})`)
	clockTime   = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(am|pm)?`)
)

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// dateMatch is a day/month/year found at a byte offset of the text
type dateMatch struct {
	offset             int
	day, month, year   string
	monthIsAbbreviated bool
}

// ExtractDate returns the earliest day-month-year date in the text as
// YYYY-MM-DD. Both numeric (15/01/24, 15-01-2024) and abbreviated month
// (15 Jan 2024) shapes are recognised; two-digit years are taken as 20xx.
func ExtractDate(original string) (string, bool) {
	var matches []dateMatch
	for _, m := range numericDate.FindAllStringSubmatchIndex(original, -1) {
		matches = append(matches, dateMatch{
			offset: m[0],
			day:    original[m[2]:m[3]],
			month:  original[m[4]:m[5]],
			year:   original[m[6]:m[7]],
		})
	}
	for _, m := range textualDate.FindAllStringSubmatchIndex(original, -1) {
		matches = append(matches, dateMatch{
			offset:             m[0],
			day:                original[m[2]:m[3]],
			month:              original[m[4]:m[5]],
			year:               original[m[6]:m[7]],
			monthIsAbbreviated: true,
		})
	}

	var (
		best  string
		found bool
		at    int
	)
	for _, m := range matches {
		if found && m.offset >= at {
			continue
		}
		if iso, ok := m.iso(); ok {
			best, found, at = iso, true, m.offset
		}
	}
	return best, found
}

func (m dateMatch) iso() (string, bool) {
	day, err := strconv.Atoi(m.day)
	if err != nil || day < 1 || day > 31 {
		return "", false
	}

	var month int
	if m.monthIsAbbreviated {
		month = monthNumbers[strings.ToLower(m.month)]
	} else if month, err = strconv.Atoi(m.month); err != nil {
		return "", false
	}
	if month < 1 || month > 12 {
		return "", false
	}

	year := m.year
	switch len(year) {
	case 2:
		year = "20" + year
	case 4:
	default:
		return "", false
	}

	return fmt.Sprintf("%s-%02d-%02d", year, month, day), true
}

// ExtractTime returns the first clock time in the text in 24-hour HH:MM form
func ExtractTime(original string) (string, bool) {
	for _, m := range clockTime.FindAllStringSubmatch(original, -1) {
		hour, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		minute, err := strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			continue
		}

		switch strings.ToLower(m[3]) {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		if hour > 23 {
			continue
		}
		return fmt.Sprintf("%02d:%s", hour, m[2]), true
	}
	return "", false
}
