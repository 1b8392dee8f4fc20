package conversation

import "strings"

// Intent is the outcome of classifying a user utterance while a pending
// confirmation or slot-filling session is active.
type Intent int

const (
	IntentNeither Intent = iota
	IntentConfirm
	IntentCancel
)

// Classifier decides whether an utterance is a confirmation, a cancellation
// or neither. It is deliberately a narrow interface so the keyword matcher
// can later be swapped for a real intent model without touching the
// orchestrator.
type Classifier interface {
	Classify(utterance string) Intent
}

// Keyword sets matched case-insensitively as substrings. Staff switch
// freely between English and Chinese, so both sets carry both languages.
var (
	confirmKeywords = []string{"confirm", "ok", "yes", "确认", "好的", "行", "可以", "是", "对"}
	cancelKeywords  = []string{"cancel", "no", "取消", "不", "否"}
)

// KeywordClassifier is the default, intentionally crude classifier: plain
// substring matching against fixed keyword sets. When an utterance matches
// both sets, cancel wins, so an unclear reply never triggers a side effect.
type KeywordClassifier struct {
	confirm []string
	cancel  []string
}

// NewKeywordClassifier returns a classifier with the built-in keyword sets.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{confirm: confirmKeywords, cancel: cancelKeywords}
}

// Classify matches the utterance against the cancel set first, then the
// confirm set.
func (c *KeywordClassifier) Classify(utterance string) Intent {
	lowered := strings.ToLower(utterance)

	for _, kw := range c.cancel {
		if strings.Contains(lowered, kw) {
			return IntentCancel
		}
	}
	for _, kw := range c.confirm {
		if strings.Contains(lowered, kw) {
			return IntentConfirm
		}
	}
	return IntentNeither
}
