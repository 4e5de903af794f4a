package domain

// ParsedReceipt is the best-guess extraction from recognized receipt text.
// Confidence is a 0-1 heuristic, not a calibrated probability.
type ParsedReceipt struct {
	Service    string
	Amount     float64
	Currency   string
	Confidence float64
	RawSnippet string
}

// AcceptanceThreshold is the confidence above which a parse may be offered
// to the user as a pre-filled subscription.
const AcceptanceThreshold = 0.6

// Acceptable reports whether the parse is confident enough to auto-suggest.
func (p ParsedReceipt) Acceptable() bool {
	return p.Confidence > AcceptanceThreshold
}
