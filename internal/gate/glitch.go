// Package gate implements the glitch gate: the deterministic cut that
// withholds the tail of a locked signal from readers without access.
//
// Offsets are counted in Unicode code points, so a glitch point of 120
// always keeps the first 120 runes of the body whatever their UTF-8 width.
package gate

import "unicode/utf8"

// Cut is the outcome of Render.
type Cut struct {
	// Safe is the prefix that may be shown as real text.
	Safe string
	// Withheld is the number of runes held back after Safe; zero means the
	// whole body is shown.
	Withheld int
}

// Truncated reports whether anything was held back.
func (c Cut) Truncated() bool {
	return c.Withheld > 0
}

// Render applies the gate to content. Unlocked content, content without a
// glitch point, and content no longer than the glitch point come back
// whole. A negative glitch point cuts at 0.
func Render(content string, isLocked bool, glitchPoint *int) Cut {
	if !isLocked || glitchPoint == nil {
		return Cut{Safe: content}
	}

	at := *glitchPoint
	if at < 0 {
		at = 0
	}
	total := utf8.RuneCountInString(content)
	if total <= at {
		return Cut{Safe: content}
	}

	// byte index of rune number `at`
	idx, n := 0, 0
	for i := range content {
		if n == at {
			idx = i
			break
		}
		n++
	}
	return Cut{Safe: content[:idx], Withheld: total - at}
}

var glyphs = []rune("░▒▓█▚▞▙▟")

// Filler is the decorative stand-in for n withheld runes, capped at limit
// runes. The same (n, limit) always yields the same string.
func Filler(n, limit int) string {
	if n <= 0 || limit <= 0 {
		return ""
	}
	if n > limit {
		n = limit
	}
	out := make([]rune, n)
	for i := range out {
		out[i] = glyphs[(i*5+n)%len(glyphs)]
	}
	return string(out)
}
