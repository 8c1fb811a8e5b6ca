package rag

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"document-qa/internal/models"
)

var (
	mentionQuestionRes = []*regexp.Regexp{
		regexp.MustCompile(`^does the document mention\b`),
		regexp.MustCompile(`^does it mention\b`),
		regexp.MustCompile(`^does it talk about\b`),
		regexp.MustCompile(`^is there any mention of\b`),
		regexp.MustCompile(`^is .* discussed\b`),
		regexp.MustCompile(`^is .* mentioned\b`),
	}

	questionFocusRes = []*regexp.Regexp{
		regexp.MustCompile(`does the document mention (.+)`),
		regexp.MustCompile(`does it mention (.+)`),
		regexp.MustCompile(`does it talk about (.+)`),
		regexp.MustCompile(`is there any mention of (.+)`),
		regexp.MustCompile(`is (.+) discussed`),
		regexp.MustCompile(`is (.+) mentioned`),
	}
)

// IsMentionQuestion reports whether question asks if the documents mention a topic at all
func IsMentionQuestion(question string) bool {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, re := range mentionQuestionRes {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

// QuestionFocus returns the topic a mention question asks about, e.g. "design patterns"
// for "Does the document mention design patterns?". It returns "" when there is none.
func QuestionFocus(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, re := range questionFocusRes {
		if m := re.FindStringSubmatch(q); m != nil {
			return strings.Trim(m[1], " ?.")
		}
	}
	return ""
}

// FilterMentions keeps contexts only when one of them contains every token of the
// question's focus. Questions that are not mention questions pass through unchanged.
func FilterMentions(question string, contexts []string) []string {
	if !IsMentionQuestion(question) {
		return contexts
	}
	focus := QuestionFocus(question)
	var tokens []string
	for _, w := range wordRe.FindAllString(focus, -1) {
		if utf8.RuneCountInString(w) < models.MinTokenChars {
			continue
		}
		if _, stop := defaultStopWords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	if len(tokens) == 0 {
		return contexts
	}

	for _, c := range contexts {
		words := wordSet(c)
		all := true
		for _, t := range tokens {
			if _, ok := words[t]; !ok {
				all = false
				break
			}
		}
		if all {
			return contexts
		}
	}
	return nil
}
