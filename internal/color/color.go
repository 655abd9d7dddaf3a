// Package color renders advisory lines and role/nick colors for the wire
// protocol. Advisory severities use labstack/gommon's named ANSI palette;
// arbitrary per-role and per-user hex colors use a hand-rolled truecolor
// escape since gommon only covers the fixed 16-color ANSI set.
package color

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/labstack/gommon/color"
)

var c = color.New()

// Red renders a StorageFailure/Unauthorized/Internal advisory line.
func Red(s string) string { return c.Red(s) }

// Yellow renders a Syntax/State/Conflict/NotFound/Validation advisory line.
func Yellow(s string) string { return c.Yellow(s) }

// Green renders a success confirmation line.
func Green(s string) string { return c.Green(s) }

var hexRe = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// ValidHex reports whether s is a bare or #-prefixed 6-digit hex color.
func ValidHex(s string) bool {
	return hexRe.MatchString(s)
}

// TrueColor wraps s in a 24-bit foreground-color escape derived from hex.
// Falls back to s unmodified if hex isn't a valid 6-digit color.
func TrueColor(s, hex string) string {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return s
	}
	r, err1 := strconv.ParseUint(hex[0:2], 16, 8)
	g, err2 := strconv.ParseUint(hex[2:4], 16, 8)
	b, err3 := strconv.ParseUint(hex[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return s
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", r, g, b, s)
}

// Italic wraps s in an ANSI italic escape, matching the nick display style.
func Italic(s string) string {
	return "\x1b[3m" + s + "\x1b[0m"
}
