package overlay

import "strings"

// BoxColor strokes checkbox crosses and radio dots
var BoxColor = RGB{30, 30, 30}

// FontColors is the vendor's text palette. brightblue really is the same
// dark grey as BoxColor in the vendor rendering.
var FontColors = map[string]RGB{
	"black":      {0, 0, 0},
	"brightblue": {30, 30, 30},
	"brightred":  {219, 17, 17},
	"darkgreen":  {18, 130, 21},
	"darkred":    {114, 16, 16},
	"gold":       {237, 187, 9},
	"green":      {23, 170, 26},
	"navyblue":   {41, 66, 112},
	"purple":     {130, 11, 193},
	"white":      {255, 255, 255},
}

// FontColor resolves a palette name; unknown and empty names are black
func FontColor(name string) RGB {
	if c, ok := FontColors[strings.ToLower(name)]; ok {
		return c
	}
	return FontColors["black"]
}
