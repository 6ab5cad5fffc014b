package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"

	"bilancio/internal/core"
)

// Settings are user-facing preferences read from a TOML file.
//
//	locale          = "es-CL"
//	currency_symbol = "$"
//	timezone        = "America/Santiago"
//	cutoff_day      = 1
//	trend_window    = 6
//	top_categories  = 5
type Settings struct {
	Locale         string `toml:"locale"`
	CurrencySymbol string `toml:"currency_symbol"`
	Timezone       string `toml:"timezone"`
	CutoffDay      int    `toml:"cutoff_day"`
	TrendWindow    int    `toml:"trend_window"`
	TopCategories  int    `toml:"top_categories"`
}

func DefaultSettings() Settings {
	return Settings{
		Locale:         core.DefaultLocale,
		CurrencySymbol: core.DefaultCurrencySymbol,
		Timezone:       "America/Santiago",
		CutoffDay:      1,
		TrendWindow:    6,
		TopCategories:  5,
	}
}

// LoadSettings decodes path over the defaults, so keys missing from the file
// keep their default value. Unknown keys are an error.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("read settings %s: unknown keys %v", path, undecoded)
	}
	return s, nil
}

// Location resolves Timezone.
func (s Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

func (s Settings) Formatter() (core.Formatter, error) {
	return core.NewFormatter(s.Locale, s.CurrencySymbol)
}

func (s Settings) problems() []string {
	var out []string
	if _, err := s.Formatter(); err != nil {
		out = append(out, fmt.Sprintf("invalid locale '%s': %v", s.Locale, err))
	}
	if _, err := s.Location(); err != nil {
		out = append(out, fmt.Sprintf("invalid timezone '%s'", s.Timezone))
	}
	if s.CutoffDay < 1 || s.CutoffDay > 28 {
		out = append(out, fmt.Sprintf("invalid cutoff day %d: must be between 1 and 28", s.CutoffDay))
	}
	if s.TrendWindow < 1 || s.TrendWindow > 120 {
		out = append(out, fmt.Sprintf("invalid trend window %d: must be between 1 and 120", s.TrendWindow))
	}
	if s.TopCategories < 1 {
		out = append(out, fmt.Sprintf("invalid top categories %d: must be at least 1", s.TopCategories))
	}
	return out
}
