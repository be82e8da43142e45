package breach

import "github.com/nbutton23/zxcvbn-go"

// Strength labels, ordered from weakest to strongest.
const (
	VeryWeak   = "Very Weak"
	Weak       = "Weak"
	Moderate   = "Moderate"
	Strong     = "Strong"
	VeryStrong = "Very Strong"
)

var labels = [...]string{VeryWeak, Weak, Moderate, Strong, VeryStrong}

// maxScoredRunes bounds the input to the estimator, whose matching cost
// grows steeply with length.
const maxScoredRunes = 100

// Score estimates password strength on the zxcvbn 0-4 scale. Only the first
// maxScoredRunes runes are scored.
func Score(password string) int {
	return clampScore(zxcvbn.PasswordStrength(scoredPrefix(password), nil).Score)
}

func scoredPrefix(password string) string {
	n := 0
	for i := range password {
		if n == maxScoredRunes {
			return password[:i]
		}
		n++
	}
	return password
}

// Label names a 0-4 score.
func Label(score int) string {
	return labels[clampScore(score)]
}

// Health converts a 0-4 score to the 0-100 health scale.
func Health(score int) int {
	return clampScore(score) * 25
}

func clampScore(s int) int {
	switch {
	case s < 0:
		return 0
	case s > 4:
		return 4
	default:
		return s
	}
}
