package interview

import "strings"

// Verdict is the parsed answer of a binary classification.
type Verdict int

const (
	VerdictAmbiguous Verdict = iota
	VerdictNo
	VerdictYes
)

func (v Verdict) String() string {
	switch v {
	case VerdictYes:
		return "yes"
	case VerdictNo:
		return "no"
	default:
		return "ambiguous"
	}
}

// ParseVerdict maps the model's raw output to a Verdict. Only a bare "1" or "0"
// (allowing surrounding whitespace, quotes, backticks and a trailing period)
// is accepted; anything else is ambiguous.
func ParseVerdict(raw string) Verdict {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, ".")
	cleaned = strings.Trim(cleaned, "`\"' \t\r\n")

	switch cleaned {
	case "1":
		return VerdictYes
	case "0":
		return VerdictNo
	default:
		return VerdictAmbiguous
	}
}
