package ui

import (
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Option is one choice in a picker.
type Option struct {
	Value string
	Label string
}

var (
	genderValues   = []string{"women", "men", "unisex"}
	occasionValues = []string{"casual", "work", "party", "wedding", "date night", "festive"}
	seasonValues   = []string{"summer", "winter", "monsoon", "spring", "autumn"}
)

// GenderOptions lists the gender picker.
func GenderOptions() []Option { return buildOptions(genderValues) }

// OccasionOptions lists the occasion picker.
func OccasionOptions() []Option { return buildOptions(occasionValues) }

// SeasonOptions lists the season picker.
func SeasonOptions() []Option { return buildOptions(seasonValues) }

// DefaultSelection is the picker state before the user changes anything.
func DefaultSelection() Selection {
	return Selection{
		Gender:   genderValues[0],
		Occasion: occasionValues[0],
		Season:   seasonValues[0],
	}
}

// NormalizeSelection replaces values that are not offered by the pickers
// with the defaults.
func NormalizeSelection(sel Selection) Selection {
	def := DefaultSelection()
	if !slices.Contains(genderValues, sel.Gender) {
		sel.Gender = def.Gender
	}
	if !slices.Contains(occasionValues, sel.Occasion) {
		sel.Occasion = def.Occasion
	}
	if !slices.Contains(seasonValues, sel.Season) {
		sel.Season = def.Season
	}
	return sel
}

func buildOptions(values []string) []Option {
	// a Caser is not safe for concurrent use
	caser := cases.Title(language.English)
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: caser.String(v)})
	}
	return out
}
