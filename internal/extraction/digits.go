package extraction

import (
	"strings"
	"unicode"
)

var digitWords = map[string]string{
	"zero": "0", "oh": "0", "o": "0",
	"one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
}

var repeatWords = map[string]int{
	"double": 2,
	"triple": 3,
}

// foldSpokenDigits rewrites spoken digit words into digit characters while
// leaving every other token untouched, so that "four one six" and "416"
// normalize identically downstream.
func foldSpokenDigits(transcript string) string {
	fields := strings.Fields(transcript)
	out := make([]string, 0, len(fields))
	repeat := 0

	for _, field := range fields {
		word := strings.TrimFunc(strings.ToLower(field), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})

		if n, ok := repeatWords[word]; ok {
			repeat = n
			continue
		}

		if d, ok := digitWords[word]; ok {
			if repeat > 1 {
				out = append(out, strings.Repeat(d, repeat))
			} else {
				out = append(out, d)
			}
			repeat = 0
			continue
		}

		repeat = 0
		out = append(out, field)
	}

	return strings.Join(out, " ")
}

// digitsOnly strips every non-digit character
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// containsDigitRun reports whether the folded transcript carries at least
// min usable digits, a cheap gate before attempting a phone parse.
func containsDigitRun(s string, min int) bool {
	return len(digitsOnly(s)) >= min
}
