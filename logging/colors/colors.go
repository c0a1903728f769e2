package colors

import (
	"fmt"
	"os"
)

// ColorFunc is an alias type for a coloring function that accepts anything and returns a colorized string.
type ColorFunc = func(s any) string

// Color is an ANSI SGR code.
type Color int

const (
	BLACK Color = iota + 30
	RED
	GREEN
	YELLOW
	BLUE
	MAGENTA
	CYAN
	WHITE
	BOLD      Color = 1
	DARK_GRAY Color = 90
)

// LEFT_ARROW is the glyph console output uses for info-level lines.
const LEFT_ARROW = "⇾"

// enabled controls whether Colorize emits ANSI codes. Respects the NO_COLOR convention.
var enabled = os.Getenv("NO_COLOR") == ""

// DisableColors turns all coloring functions into pass-throughs.
func DisableColors() {
	enabled = false
}

// Colorize returns the input as a string wrapped in the given ANSI code, or unchanged when coloring is disabled.
func Colorize(s any, c Color) string {
	if !enabled {
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

// Reset is a ColorFunc that returns the input as an uncolored string. It resets the color context during complex
// logging operations.
func Reset(s any) string { return fmt.Sprintf("%v", s) }

func Red(s any) string      { return Colorize(s, RED) }
func Green(s any) string    { return Colorize(s, GREEN) }
func Yellow(s any) string   { return Colorize(s, YELLOW) }
func Blue(s any) string     { return Colorize(s, BLUE) }
func Magenta(s any) string  { return Colorize(s, MAGENTA) }
func Cyan(s any) string     { return Colorize(s, CYAN) }
func White(s any) string    { return Colorize(s, WHITE) }
func DarkGray(s any) string { return Colorize(s, DARK_GRAY) }
func Bold(s any) string     { return Colorize(s, BOLD) }

func RedBold(s any) string    { return Colorize(Colorize(s, RED), BOLD) }
func GreenBold(s any) string  { return Colorize(Colorize(s, GREEN), BOLD) }
func YellowBold(s any) string { return Colorize(Colorize(s, YELLOW), BOLD) }
func BlueBold(s any) string   { return Colorize(Colorize(s, BLUE), BOLD) }
func CyanBold(s any) string   { return Colorize(Colorize(s, CYAN), BOLD) }
func WhiteBold(s any) string  { return Colorize(Colorize(s, WHITE), BOLD) }
