package advisor

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// The cl100k_base vocabulary takes real time to load, so the encoding
// is shared and built on first use.
var (
	bpe     *tiktoken.Tiktoken
	bpeErr  error
	bpeOnce sync.Once
)

func encoding() (*tiktoken.Tiktoken, error) {
	bpeOnce.Do(func() {
		bpe, bpeErr = tiktoken.GetEncoding("cl100k_base")
	})
	return bpe, bpeErr
}

// countTokens measures text in model tokens, approximating at four
// characters per token when the encoding cannot be loaded.
func countTokens(text string) int {
	enc, err := encoding()
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// trimToBudget caps text at budget tokens; zero or negative budgets
// disable the cap. Without the encoding it cuts at the same
// four-characters-per-token approximation instead.
func trimToBudget(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	enc, err := encoding()
	if err != nil {
		return cutAtRune(text, budget*4)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}

// cutAtRune shortens text to at most limit bytes, backing up so the
// cut never lands inside a multi-byte rune.
func cutAtRune(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
