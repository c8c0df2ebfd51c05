// Package passwordx implements a composable password-strength policy.
//
// Validation produces structured violation codes rather than errors so
// callers can surface per-field feedback. Blank candidates are deliberately
// out of scope: a separate required-field check owns that concern.
package passwordx

// Violation identifies a single failed policy rule.
type Violation string

const (
	TooShort         Violation = "too_short"
	MissingUppercase Violation = "missing_uppercase"
	MissingLowercase Violation = "missing_lowercase"
	MissingNumber    Violation = "missing_number"
	MissingSpecial   Violation = "missing_special"
)

// Config holds the policy rules. Each rule can be toggled independently.
type Config struct {
	MinLength           int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecialChars bool
}

// DefaultConfig returns the policy applied to account passwords:
// 12+ characters with at least one character from every class.
func DefaultConfig() Config {
	return Config{
		MinLength:           12,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
	}
}

// Validate checks candidate against cfg and returns the violated rules.
// An empty candidate passes (blank-checking is a separate concern). A
// candidate shorter than MinLength reports exactly TooShort and nothing
// else; character-class rules are only evaluated once the length holds,
// and all failing classes are reported together.
//
// Classification is byte-wise over ASCII so results do not depend on the
// process locale. Anything outside [A-Za-z0-9] counts as special, which
// keeps multi-byte runes usable as special characters.
func Validate(candidate string, cfg Config) []Violation {
	if candidate == "" {
		return nil
	}

	if len(candidate) < cfg.MinLength {
		return []Violation{TooShort}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for i := 0; i < len(candidate); i++ {
		switch c := candidate[i]; {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	var violations []Violation
	if cfg.RequireUppercase && !hasUpper {
		violations = append(violations, MissingUppercase)
	}
	if cfg.RequireLowercase && !hasLower {
		violations = append(violations, MissingLowercase)
	}
	if cfg.RequireNumbers && !hasNumber {
		violations = append(violations, MissingNumber)
	}
	if cfg.RequireSpecialChars && !hasSpecial {
		violations = append(violations, MissingSpecial)
	}
	return violations
}
