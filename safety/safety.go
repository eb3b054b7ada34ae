// Package safety classifies user text before it reaches a model provider.
//
// Classification is a case-insensitive substring match against two fixed
// keyword lists. Crisis terms take precedence over medical terms. Only the
// most recent user message is classified; a keyword split across turns is
// not detected.
package safety

import (
	"strings"

	"github.com/fwojciec/coach"
)

// Class is the outcome of a classification.
type Class string

const (
	Safe    Class = "safe"
	Crisis  Class = "crisis"
	Medical Class = "medical"
)

// CrisisResponse is returned instead of a model reply when crisis terms match.
const CrisisResponse = `I'm not able to help with emergencies. If anyone is in immediate danger or at risk of harm, please contact local emergency services or a licensed professional right away. You're not alone, and there are people who can help immediately.

For immediate safety concerns:
• Call 911 or your local emergency number
• Contact your local crisis hotline
• Reach out to a trusted family member or friend
• Go to your nearest emergency room

I'm here to help with everyday parenting challenges when it's safe to do so.`

// MedicalResponse is returned instead of a model reply when medical terms match.
const MedicalResponse = `I can't provide medical or diagnostic advice. A licensed healthcare professional is the best resource for that. If it helps, I can offer general communication and boundary-setting tips for everyday situations.

For medical concerns:
• Contact your pediatrician or family doctor
• Use your health insurance's nurse line
• Visit an urgent care center if needed
• In emergencies, call 911

I'm happy to help with behavioral and communication strategies once you've addressed any medical needs with a professional.`

// Clinical words (medicine, doctor...) live in the medical list only, so a
// plain medication question gets the medical redirect rather than the
// emergency one.
var crisisKeywords = []string{
	"emergency", "urgent", "danger", "harm", "hurt", "injury",
	"hospital", "crisis", "suicide", "self-harm", "abuse", "neglect",
}

var medicalKeywords = []string{
	"diagnosis", "symptoms", "treatment", "therapy", "medication", "medicine",
	"dosage", "doctor", "pediatrician", "medical", "health", "illness",
	"disease", "condition", "disorder", "syndrome",
}

// Result is a classification outcome. Response holds the canned reply for
// blocked text; Sanitized holds the cleaned text for safe text.
type Result struct {
	Class     Class
	Response  string
	Sanitized string
}

// Blocked reports whether the text must not be sent to a model provider.
func (r Result) Blocked() bool {
	return r.Class != Safe
}

// Classify classifies text.
func Classify(text string) Result {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, crisisKeywords):
		return Result{Class: Crisis, Response: CrisisResponse}
	case containsAny(lower, medicalKeywords):
		return Result{Class: Medical, Response: MedicalResponse}
	}
	return Result{Class: Safe, Sanitized: Sanitize(text)}
}

// ClassifyLatest classifies the most recent user message in msgs.
// A history without user messages is safe.
func ClassifyLatest(msgs []coach.Message) Result {
	m, ok := coach.LatestUserMessage(msgs)
	if !ok {
		return Result{Class: Safe}
	}
	return Classify(m.Content)
}

// Sanitize strips angle brackets and surrounding whitespace.
func Sanitize(text string) string {
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(text))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
