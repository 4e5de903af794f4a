// Package receipt extracts subscription details from recognized receipt text.
package receipt

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"SubTrack/internal/domain"
)

// Amounts outside this band are rejected as implausible subscription prices.
const (
	minAmount = 5
	maxAmount = 1000
)

const snippetLimit = 200

// amountRule pairs a pattern with its implied currency and confidence weight.
// Symbol-adjacent amounts score higher than named-currency suffixes.
type amountRule struct {
	pattern  *regexp.Regexp
	currency string
	weight   float64
}

// Rules are evaluated in priority order against the lowercased text; the
// first match inside the plausibility band wins. Multiple candidates are not
// aggregated or disambiguated.
var amountRules = []amountRule{
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*₪`), "₪", 0.9},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*שקל`), "₪", 0.8},
	{regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)`), "$", 0.9},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*usd`), "$", 0.8},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*€`), "€", 0.9},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*eur`), "€", 0.8},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*nis`), "₪", 0.7},
}

// Fallback heuristics for service names when no known service matched.
var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*`),
	regexp.MustCompile(`[a-zA-Z]{3,}\.com`),
	regexp.MustCompile(`[A-Z]{3,}`),
}

var stopWords = map[string]struct{}{
	"the": {},
	"and": {},
	"for": {},
	"you": {},
}

// Parser holds the known-service shortlist used for high-confidence matches.
type Parser struct {
	knownServices []string
	logger        *slog.Logger
}

// NewParser builds a parser around the configured service shortlist.
func NewParser(knownServices []string, logger *slog.Logger) *Parser {
	return &Parser{knownServices: knownServices, logger: logger}
}

// Parse turns raw recognized text into a best-guess receipt tuple. It returns
// nil only when neither an amount nor a service was found; otherwise the
// caller decides via the confidence score whether to auto-suggest.
func (p *Parser) Parse(raw string) *domain.ParsedReceipt {
	clean := strings.ToLower(strings.TrimSpace(raw))
	if clean == "" {
		return nil
	}

	amount, currency, amountConf := extractAmount(clean)
	service, serviceConf := p.extractService(raw, clean)

	if amount == 0 && service == "" {
		return nil
	}

	result := &domain.ParsedReceipt{
		Service:    service,
		Amount:     amount,
		Currency:   currency,
		Confidence: (amountConf + serviceConf) / 2,
		RawSnippet: snippet(raw),
	}

	p.debug("parsed receipt text",
		"service", service, "amount", amount, "currency", currency,
		"confidence", result.Confidence)
	return result
}

func extractAmount(clean string) (amount float64, currency string, confidence float64) {
	for _, rule := range amountRules {
		for _, match := range rule.pattern.FindAllStringSubmatch(clean, -1) {
			value, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				continue
			}
			if value < minAmount || value > maxAmount {
				continue
			}
			return value, rule.currency, rule.weight
		}
	}
	return 0, "", 0
}

// extractService checks the known-service list first: every token present
// scores high, any token present scores medium. Generic company-name
// heuristics are the low-confidence fallback.
func (p *Parser) extractService(raw, clean string) (string, float64) {
	var (
		service    string
		confidence float64
	)

	for _, known := range p.knownServices {
		tokens := strings.Fields(strings.ToLower(known))
		if len(tokens) == 0 {
			continue
		}
		if containsAll(clean, tokens) {
			return known, 0.9
		}
		if containsAny(clean, tokens) {
			service = known
			confidence = 0.6
		}
	}
	if service != "" {
		return service, confidence
	}

	for _, pattern := range companyPatterns {
		for _, match := range pattern.FindAllString(raw, -1) {
			candidate := strings.TrimSpace(match)
			if len(candidate) < 3 {
				continue
			}
			if _, stop := stopWords[strings.ToLower(candidate)]; stop {
				continue
			}
			return candidate, 0.4
		}
	}

	return "", 0
}

func containsAll(text string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(text, token) {
			return false
		}
	}
	return true
}

func containsAny(text string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

func snippet(raw string) string {
	runes := []rune(raw)
	if len(runes) <= snippetLimit {
		return raw
	}
	return string(runes[:snippetLimit])
}

func (p *Parser) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
