package chunking

import "strings"

// coherentWordCount is the word count a span must exceed to count as
// substantive.
const coherentWordCount = 50

// Score rates a Set for uniformity and coherence. Higher is better.
//
// The score is (1000 / variance of span lengths) × (fraction of spans with
// more than 50 words). A set whose spans all have the same length, including
// a single-span set, scores 0.
func Score(set Set) float64 {
	n := len(set.Spans)
	if n == 0 {
		return 0
	}

	var total float64
	for _, span := range set.Spans {
		total += float64(span.Len())
	}
	mean := total / float64(n)

	var variance float64
	coherent := 0
	for _, span := range set.Spans {
		d := float64(span.Len()) - mean
		variance += d * d
		if len(strings.Fields(span.Text)) > coherentWordCount {
			coherent++
		}
	}
	variance /= float64(n)

	if variance <= 0 {
		return 0
	}

	return (1000 / variance) * (float64(coherent) / float64(n))
}
