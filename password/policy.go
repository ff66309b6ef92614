package password

import (
	"strings"
	"unicode"
)

// Strength labels, derived from the final score.
const (
	StrengthVeryWeak   = "Very Weak"
	StrengthWeak       = "Weak"
	StrengthModerate   = "Moderate"
	StrengthStrong     = "Strong"
	StrengthVeryStrong = "Very Strong"
)

// Feedback messages produced by the scorer.
const (
	feedbackTooShort      = "password is too short"
	feedbackNoUppercase   = "add an uppercase letter"
	feedbackNoLowercase   = "add a lowercase letter"
	feedbackNoDigit       = "add a digit"
	feedbackNoSymbol      = "add a special character"
	feedbackRepeatedRun   = "avoid repeated characters"
	feedbackSequentialNum = "avoid sequential digits"
	feedbackSequentialABC = "avoid sequential letters"
)

// Validation error messages produced by [Policy.Validate].
const (
	errTooWeak         = "password is too weak"
	errCommonPassword  = "password is too common"
	errContainsUser    = "password must not contain the username"
	errContainsEmail   = "password must not contain parts of the email address"
	errDictionaryWord  = "password contains a dictionary word"
	errKeyboardPattern = "password contains a keyboard pattern"
)

// commonPasswords is matched by case-insensitive equality.
var commonPasswords = []string{
	"password", "123456", "123456789", "12345678", "qwerty", "abc123",
	"monkey", "1234567", "letmein", "trustno1", "dragon", "baseball",
	"iloveyou", "master", "sunshine", "ashley", "bailey", "shadow",
	"superman", "qazwsx", "michael", "football", "welcome", "admin",
}

// dictionaryWords is matched by case-insensitive containment.
var dictionaryWords = []string{
	"password", "admin", "user", "login", "welcome", "secret",
	"master", "dragon", "monkey", "shadow", "qwerty", "letmein",
}

// keyboardPatterns is matched by case-insensitive containment.
var keyboardPatterns = []string{
	"qwerty", "qwertz", "azerty", "asdfgh", "zxcvbn",
	"qazwsx", "wsxedc", "12345", "54321", "09876",
}

// ascendingDigitRuns is the fixed set of three-digit ascending runs.
var ascendingDigitRuns = []string{
	"012", "123", "234", "345", "456", "567", "678", "789", "890",
}

// Assessment is the derived strength report for a candidate password. Score
// is floored at zero for display; the raw (possibly negative) score drives
// [Policy.Validate].
type Assessment struct {
	Score    int
	Strength string
	Feedback []string
}

// ValidationResult is returned by [Policy.Validate]. Errors accumulates every
// applicable rejection; Valid is true iff the list is empty.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Policy gates candidate passwords at registration and reset.
type Policy struct {
	// MinScore is the minimum raw score accepted by Validate.
	MinScore int
}

// Assess scores a candidate password. The result is deterministic and the
// displayed score is never negative; an empty password scores zero, Very Weak.
func Assess(password string) Assessment {
	raw, feedback := score(password)

	display := raw
	if display < 0 {
		display = 0
	}

	return Assessment{
		Score:    display,
		Strength: strengthLabel(raw),
		Feedback: feedback,
	}
}

// Validate applies the rejection rules on top of the score: weak raw score,
// common-password equality, username containment, email local-part segments,
// dictionary words, and keyboard patterns. All applicable errors accumulate.
func (p Policy) Validate(password, username, email string) ValidationResult {
	raw, _ := score(password)
	lower := strings.ToLower(password)

	var errs []string

	if raw < p.MinScore {
		errs = append(errs, errTooWeak)
	}

	for _, common := range commonPasswords {
		if strings.EqualFold(password, common) {
			errs = append(errs, errCommonPassword)
			break
		}
	}

	if username != "" && strings.Contains(lower, strings.ToLower(username)) {
		errs = append(errs, errContainsUser)
	}

	if seg := emailSegmentIn(lower, email); seg {
		errs = append(errs, errContainsEmail)
	}

	for _, word := range dictionaryWords {
		if strings.Contains(lower, word) {
			errs = append(errs, errDictionaryWord)
			break
		}
	}

	for _, pattern := range keyboardPatterns {
		if strings.Contains(lower, pattern) {
			errs = append(errs, errKeyboardPattern)
			break
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// score computes the raw integer score and its feedback, in table order.
func score(password string) (int, []string) {
	runes := []rune(password)
	length := len(runes)

	var total int
	var feedback []string

	switch {
	case length >= 8:
		total += 2
	case length >= 6:
		total++
		feedback = append(feedback, feedbackTooShort)
	default:
		feedback = append(feedback, feedbackTooShort)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if hasUpper {
		total++
	} else {
		feedback = append(feedback, feedbackNoUppercase)
	}
	if hasLower {
		total++
	} else {
		feedback = append(feedback, feedbackNoLowercase)
	}
	if hasDigit {
		total++
	} else {
		feedback = append(feedback, feedbackNoDigit)
	}
	if hasSymbol {
		total++
	} else {
		feedback = append(feedback, feedbackNoSymbol)
	}

	if length >= 12 {
		total++
	}
	if length >= 16 {
		total++
	}

	if hasRepeatedRun(runes) {
		total--
		feedback = append(feedback, feedbackRepeatedRun)
	}
	if hasAscendingDigits(password) {
		total--
		feedback = append(feedback, feedbackSequentialNum)
	}
	if hasAscendingLetters(password) {
		total--
		feedback = append(feedback, feedbackSequentialABC)
	}

	return total, feedback
}

func strengthLabel(raw int) string {
	switch {
	case raw >= 8:
		return StrengthVeryStrong
	case raw >= 6:
		return StrengthStrong
	case raw >= 4:
		return StrengthModerate
	case raw >= 2:
		return StrengthWeak
	default:
		return StrengthVeryWeak
	}
}

func hasRepeatedRun(runes []rune) bool {
	for i := 0; i+2 < len(runes); i++ {
		if runes[i] == runes[i+1] && runes[i] == runes[i+2] {
			return true
		}
	}
	return false
}

func hasAscendingDigits(password string) bool {
	for _, run := range ascendingDigitRuns {
		if strings.Contains(password, run) {
			return true
		}
	}
	return false
}

func hasAscendingLetters(password string) bool {
	lower := strings.ToLower(password)
	for i := 0; i+2 < len(lower); i++ {
		a, b, c := lower[i], lower[i+1], lower[i+2]
		if a >= 'a' && c <= 'z' && b == a+1 && c == b+1 {
			return true
		}
	}
	return false
}

// emailSegmentIn reports whether any dot-separated segment of the email's
// local part longer than two characters appears in the password.
func emailSegmentIn(lowerPassword, email string) bool {
	if email == "" {
		return false
	}

	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}

	for _, segment := range strings.Split(strings.ToLower(local), ".") {
		if len(segment) > 2 && strings.Contains(lowerPassword, segment) {
			return true
		}
	}
	return false
}
