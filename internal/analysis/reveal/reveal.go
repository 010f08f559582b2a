package reveal

import (
	"strings"
	"unicode"
)

// HintThreshold 与系统指令保持一致：超过 20 次追问后巫师可以给出提示。
const HintThreshold = 20

// probeKeywords 命中任意一个即视为在打探密码。
var probeKeywords = []string{
	"password", "passcode", "passphrase", "pass word", "secret", "the word",
	"reveal", "unlock", "tell me", "give me", "what is it",
	"密码", "口令", "秘密",
}

// IsProbe reports whether a user message is fishing for the password.
func IsProbe(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	for _, word := range probeKeywords {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

// Detect reports whether reply contains secret. Case, whitespace and
// punctuation between letters are ignored, so "R-i-c-h-a-r-d Thee" counts.
func Detect(secret, reply string) bool {
	want := fold(secret)
	if want == "" {
		return false
	}
	return strings.Contains(fold(reply), want)
}

func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Tracker accumulates probe counts and the first reveal for one session.
// Not safe for concurrent use; the owning session serialises access.
type Tracker struct {
	secret   string
	probes   int
	unlocked bool
}

// NewTracker returns a tracker for the given secret.
func NewTracker(secret string) *Tracker {
	return &Tracker{secret: secret}
}

// ObserveUser records a user message.
func (t *Tracker) ObserveUser(text string) {
	if IsProbe(text) {
		t.probes++
	}
}

// ObserveAssistant records a model reply and reports whether it is the
// first one to reveal the secret.
func (t *Tracker) ObserveAssistant(text string) bool {
	if t.unlocked || !Detect(t.secret, text) {
		return false
	}
	t.unlocked = true
	return true
}

// Probes returns the number of probing user messages so far.
func (t *Tracker) Probes() int { return t.probes }

// HintDue reports whether the player has passed the hint threshold.
func (t *Tracker) HintDue() bool { return t.probes > HintThreshold }

// Unlocked reports whether any reply has revealed the secret.
func (t *Tracker) Unlocked() bool { return t.unlocked }
