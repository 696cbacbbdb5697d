package domain

import "time"

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

const (
	CategoryTechnical   = "technical"
	CategoryFinancial   = "financial"
	CategoryLegal       = "legal"
	CategoryBusiness    = "business"
	CategoryOperational = "operational"
)

// MessageAnalysis - результат эвристического разбора текста сообщения
type MessageAnalysis struct {
	MessageID  string    `json:"message_id"`
	Keywords   []string  `json:"keywords"`
	Entities   Entities  `json:"entities"`
	Sentiment  string    `json:"sentiment"`
	Urgency    string    `json:"urgency"`
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

type Entities struct {
	Dates         []string `json:"dates"`
	Amounts       []string `json:"amounts"`
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
}

func (e Entities) Count() int {
	return len(e.Dates) + len(e.Amounts) + len(e.People) + len(e.Organizations)
}

func (a *MessageAnalysis) HasKeyword(keyword string) bool {
	for _, k := range a.Keywords {
		if k == keyword {
			return true
		}
	}
	return false
}
