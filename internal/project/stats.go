package project

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Readability estimates the Automated Readability Index grade of text and
// the matching reader age band.
func Readability(text string) (grade int, ages string) {
	words := len(strings.Fields(text))
	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if sentences == 0 {
		sentences = 1
	}
	chars := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			chars++
		}
	}
	if words == 0 {
		words = 1
	}

	ari := 4.71*(float64(chars)/float64(words)) + 0.5*(float64(words)/float64(sentences)) - 21.43
	grade = int(math.Ceil(ari))
	if grade < 1 {
		grade = 1
	}

	switch {
	case grade <= 1:
		ages = "5-6"
	case grade <= 12:
		ages = fmt.Sprintf("%d-%d", grade+5, grade+6)
	case grade == 13:
		ages = "18-24"
	default:
		ages = "Adult"
	}
	return grade, ages
}

// ReadingMinutes estimates reading time at 230 words per minute, rounded up.
func ReadingMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + 229) / 230
}
