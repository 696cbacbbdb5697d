package analysis

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"deal_room/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules - упорядоченный набор правил predicate -> tag
type Rules struct {
	Keywords   []KeywordRule  `yaml:"keywords"`
	Notes      []NoteRule     `yaml:"notes"`
	Sentiment  SentimentRules `yaml:"sentiment"`
	Urgency    UrgencyRules   `yaml:"urgency"`
	Categories []CategoryRule `yaml:"categories"`
	Topics     []TopicRule    `yaml:"topics"`
}

// KeywordRule выставляет Tag, если в тексте (в нижнем регистре) встречается любая из фраз
type KeywordRule struct {
	Tag     string   `yaml:"tag"`
	Phrases []string `yaml:"phrases"`
}

// NoteRule срабатывает, если выставлен любой из Keywords
type NoteRule struct {
	Type              string   `yaml:"type"`
	Keywords          []string `yaml:"keywords"`
	Prefix            string   `yaml:"prefix"`
	MatchQuestionMark bool     `yaml:"match_question_mark"`
	AssignToSender    bool     `yaml:"assign_to_sender"`
}

type SentimentRules struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

type UrgencyRules struct {
	High           []string `yaml:"high"`
	Medium         []string `yaml:"medium"`
	MediumKeywords []string `yaml:"medium_keywords"`
}

type CategoryRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Phrases  []string `yaml:"phrases"`
}

type TopicRule struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

func (r KeywordRule) Matches(lower string) bool {
	return containsAny(lower, r.Phrases)
}

func (r NoteRule) Matches(analysis *domain.MessageAnalysis, content string) bool {
	for _, k := range r.Keywords {
		if analysis.HasKeyword(k) {
			return true
		}
	}
	return r.MatchQuestionMark && strings.Contains(content, "?")
}

func (r CategoryRule) Matches(lower string, keywords []string) bool {
	for _, k := range r.Keywords {
		for _, got := range keywords {
			if k == got {
				return true
			}
		}
	}
	return containsAny(lower, r.Phrases)
}

// DefaultRules возвращает встроенный набор правил
func DefaultRules() *Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("analysis: embedded rules are invalid: %v", err))
	}
	return rules
}

// LoadRules читает правила из YAML файла; пустой путь - встроенные правила
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rules, nil
}

func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	rules.normalize()
	return &rules, nil
}

func (r *Rules) validate() error {
	if len(r.Keywords) == 0 {
		return fmt.Errorf("at least one keyword rule is required")
	}
	tags := make(map[string]bool, len(r.Keywords))
	for i, k := range r.Keywords {
		if k.Tag == "" || len(k.Phrases) == 0 {
			return fmt.Errorf("keyword rule #%d needs a tag and phrases", i+1)
		}
		tags[k.Tag] = true
	}
	for i, n := range r.Notes {
		if !domain.IsValidNoteType(n.Type) {
			return fmt.Errorf("note rule #%d has unknown type %q", i+1, n.Type)
		}
		if len(n.Keywords) == 0 {
			return fmt.Errorf("note rule #%d needs at least one keyword", i+1)
		}
		for _, k := range n.Keywords {
			if !tags[k] {
				return fmt.Errorf("note rule #%d refers to unknown keyword %q", i+1, k)
			}
		}
		if n.Prefix == "" {
			return fmt.Errorf("note rule #%d needs a prefix", i+1)
		}
	}
	for i, c := range r.Categories {
		if c.Category == "" {
			return fmt.Errorf("category rule #%d needs a category", i+1)
		}
	}
	return nil
}

func (r *Rules) normalize() {
	lowerAll := func(in []string) {
		for i := range in {
			in[i] = strings.ToLower(in[i])
		}
	}
	for i := range r.Keywords {
		lowerAll(r.Keywords[i].Phrases)
	}
	for i := range r.Categories {
		lowerAll(r.Categories[i].Phrases)
	}
	lowerAll(r.Sentiment.Positive)
	lowerAll(r.Sentiment.Negative)
	lowerAll(r.Urgency.High)
	lowerAll(r.Urgency.Medium)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func countContained(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}
