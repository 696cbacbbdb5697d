package analysis

import (
	"math"
	"regexp"
	"strings"

	"deal_room/internal/domain"
)

// ConfidenceThreshold - note points сохраняются только при уверенности строго выше порога
const ConfidenceThreshold = 0.6

// Analyzer - детерминированный разбор текста по правилам, без внешних вызовов
type Analyzer struct {
	rules *Rules
}

func NewAnalyzer(rules *Rules) *Analyzer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Analyzer{rules: rules}
}

func (a *Analyzer) Rules() *Rules {
	return a.rules
}

// Analyze не заполняет MessageID и AnalyzedAt - это делает вызывающий
func (a *Analyzer) Analyze(content string) domain.MessageAnalysis {
	lower := strings.ToLower(content)

	keywords := a.Keywords(lower)
	entities := ExtractEntities(content)

	return domain.MessageAnalysis{
		Keywords:   keywords,
		Entities:   entities,
		Sentiment:  a.sentiment(lower),
		Urgency:    a.urgency(lower, keywords),
		Category:   a.category(lower, keywords),
		Confidence: confidence(content, keywords, entities),
	}
}

// Keywords возвращает теги сработавших правил в порядке правил, без повторов
func (a *Analyzer) Keywords(lower string) []string {
	keywords := make([]string, 0)
	seen := make(map[string]bool)
	for _, rule := range a.rules.Keywords {
		if seen[rule.Tag] || !rule.Matches(lower) {
			continue
		}
		seen[rule.Tag] = true
		keywords = append(keywords, rule.Tag)
	}
	return keywords
}

func (a *Analyzer) sentiment(lower string) string {
	positive := countContained(lower, a.rules.Sentiment.Positive)
	negative := countContained(lower, a.rules.Sentiment.Negative)

	switch {
	case positive > negative:
		return domain.SentimentPositive
	case negative > positive:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func (a *Analyzer) urgency(lower string, keywords []string) string {
	if containsAny(lower, a.rules.Urgency.High) {
		return domain.UrgencyHigh
	}
	if containsAny(lower, a.rules.Urgency.Medium) {
		return domain.UrgencyMedium
	}
	for _, k := range keywords {
		for _, mk := range a.rules.Urgency.MediumKeywords {
			if k == mk {
				return domain.UrgencyMedium
			}
		}
	}
	return domain.UrgencyLow
}

func (a *Analyzer) category(lower string, keywords []string) string {
	for _, rule := range a.rules.Categories {
		if rule.Matches(lower, keywords) {
			return rule.Category
		}
	}
	return domain.CategoryOperational
}

func confidence(content string, keywords []string, entities domain.Entities) float64 {
	c := 0.5

	if len(content) > 50 {
		c += 0.1
	}
	if len(content) > 100 {
		c += 0.1
	}
	c += math.Min(float64(len(keywords))*0.05, 0.2)
	c += math.Min(float64(entities.Count())*0.02, 0.1)

	if strings.Contains(content, "???") || strings.Contains(content, "...") {
		c -= 0.1
	}

	c = math.Max(0, math.Min(1, c))
	return math.Round(c*100) / 100
}

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b(?:next|this|last)\s+(?:week|month|year|quarter)\b`),
	}
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`),
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:million|billion|thousand|k|m|b)\b`),
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:%|percent\b)`),
	}
	personPattern = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
	orgPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Z][a-z]+ (?:Inc|LLC|Corp|Company|Ltd|Limited)\b`),
		regexp.MustCompile(`\b[A-Z]{2,}\b`),
	}

	// Слова в начале предложения, которые дают ложные "имена"
	notFirstNames = map[string]bool{
		"The": true, "This": true, "That": true, "There": true, "Then": true,
		"When": true, "Where": true, "What": true, "How": true,
	}
)

// ExtractEntities находит даты, суммы, имена и организации регулярными выражениями.
// Повторы сохраняются: каждое совпадение добавляет уверенности.
func ExtractEntities(content string) domain.Entities {
	entities := domain.Entities{
		Dates:         matchAll(content, datePatterns),
		Amounts:       matchAll(content, amountPatterns),
		Organizations: matchAll(content, orgPatterns),
		People:        make([]string, 0),
	}

	for _, name := range personPattern.FindAllString(content, -1) {
		if notFirstNames[name[:strings.IndexByte(name, ' ')]] {
			continue
		}
		entities.People = append(entities.People, name)
	}

	return entities
}

func matchAll(content string, patterns []*regexp.Regexp) []string {
	out := make([]string, 0)
	for _, p := range patterns {
		out = append(out, p.FindAllString(content, -1)...)
	}
	return out
}
