package chunking

// StrategyScore records how one strategy fared on a document.
type StrategyScore struct {
	Strategy Strategy `json:"strategy"`
	Score    float64  `json:"score"`
	Spans    int      `json:"spans"`
}

// Selection is the outcome of running every strategy on a document.
type Selection struct {
	Set    Set
	Scores []StrategyScore
}

// Strategy returns the selected strategy.
func (s Selection) Strategy() Strategy {
	return s.Set.Strategy
}

// Selector runs a table of chunkers and keeps the best-scoring set.
type Selector struct {
	chunkers []Chunker
	score    func(Set) float64
}

// NewSelector creates a selector over chunkers, listed in tie-break priority
// order. With no chunkers the default size, section, semantic table is used.
func NewSelector(opts Options, chunkers ...Chunker) *Selector {
	if len(chunkers) == 0 {
		chunkers = DefaultChunkers(opts)
	}
	return &Selector{chunkers: chunkers, score: Score}
}

// Select chunks text with every strategy and returns the set with the
// strictly highest score. Ties go to the chunker listed first.
func (s *Selector) Select(text string) Selection {
	var (
		sel  Selection
		best float64
	)

	for i, chunker := range s.chunkers {
		set := chunker.Chunk(text)
		set.Strategy = chunker.Strategy()
		score := s.score(set)

		sel.Scores = append(sel.Scores, StrategyScore{
			Strategy: set.Strategy,
			Score:    score,
			Spans:    set.Len(),
		})

		if i == 0 || score > best {
			sel.Set = set
			best = score
		}
	}

	return sel
}
