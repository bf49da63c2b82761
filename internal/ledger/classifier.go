package ledger

import "strings"

// TaskTraits flags the category-specific counters a task description drives.
type TaskTraits struct {
	Application   bool
	InterviewPrep bool
}

// Classifier derives task traits from a description. Implementations are
// best-effort heuristics; swapping one in must not change any point math.
type Classifier interface {
	Classify(description string) TaskTraits
}

// KeywordClassifier is the default substring-based classifier.
type KeywordClassifier struct{}

var applicationKeywords = []string{"apply", "application", "submit resume", "submitted"}

var interviewKeywords = []string{"interview", "leetcode", "behavioral", "system design", "mock"}

func (KeywordClassifier) Classify(description string) TaskTraits {
	lower := strings.ToLower(description)
	traits := TaskTraits{}
	for _, kw := range applicationKeywords {
		if strings.Contains(lower, kw) {
			traits.Application = true
			break
		}
	}
	for _, kw := range interviewKeywords {
		if strings.Contains(lower, kw) {
			traits.InterviewPrep = true
			break
		}
	}
	return traits
}
