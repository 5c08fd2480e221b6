// Package classify maps a training label to a display category and colour.
package classify

import (
	"strings"

	"github.com/julianstephens/trainsync/internal/constants"
)

type Category string

const (
	Intense  Category = "intense"
	Long     Category = "long"
	Recovery Category = "recovery"
	Default  Category = "default"
)

// Keyword families, checked in precedence order.
var (
	intenseKeywords  = []string{"interval", "tiro", "velocidade", "sprint", "speed", "fartlek"}
	longKeywords     = []string{"longo", "longa", "long", "distancia", "distância", "distance"}
	recoveryKeywords = []string{"recupera", "regenera", "leve", "recovery", "easy"}
)

// Classify returns the category of a training label. Matching is a
// case-insensitive substring test with precedence intense > long > recovery.
func Classify(label string) Category {
	l := strings.ToLower(label)
	switch {
	case containsAny(l, intenseKeywords):
		return Intense
	case containsAny(l, longKeywords):
		return Long
	case containsAny(l, recoveryKeywords):
		return Recovery
	default:
		return Default
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// Palette maps each category to a calendar colour id.
type Palette struct {
	Intense  string `mapstructure:"intense" yaml:"intense"`
	Long     string `mapstructure:"long" yaml:"long"`
	Recovery string `mapstructure:"recovery" yaml:"recovery"`
	Default  string `mapstructure:"default" yaml:"default"`
}

func DefaultPalette() Palette {
	return Palette{
		Intense:  constants.ColorTomato,
		Long:     constants.ColorBlueberry,
		Recovery: constants.ColorBasil,
		Default:  constants.ColorTangerine,
	}
}

// Color returns the colour id for c, falling back to the default colour.
func (p Palette) Color(c Category) string {
	var color string
	switch c {
	case Intense:
		color = p.Intense
	case Long:
		color = p.Long
	case Recovery:
		color = p.Recovery
	}
	if color == "" {
		return p.Default
	}
	return color
}

// ColorFor classifies label and returns its colour id.
func (p Palette) ColorFor(label string) string {
	return p.Color(Classify(label))
}

var colorNames = map[string]string{
	"1":  "lavender",
	"2":  "sage",
	"3":  "grape",
	"4":  "flamingo",
	"5":  "banana",
	"6":  "tangerine",
	"7":  "peacock",
	"8":  "graphite",
	"9":  "blueberry",
	"10": "basil",
	"11": "tomato",
}

// ColorName returns the display name of a calendar colour id.
func ColorName(id string) string {
	if name, ok := colorNames[id]; ok {
		return name
	}
	return "calendar default"
}

// ValidColor reports whether id is a known event colour id.
func ValidColor(id string) bool {
	_, ok := colorNames[id]
	return ok
}
