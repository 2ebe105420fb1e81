// Package settings loads and persists runtime preferences. Invalid or
// unreadable settings never abort the app; they fall back to defaults.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/skycast-tui/skycast/internal/domain"
)

// RecentMax bounds the persisted recent-location history.
const RecentMax = 12

// Settings is the configuration bundle read once at bootstrap. The state
// machine owns the live copy; persistence happens through Save commands.
type Settings struct {
	Units              string           `mapstructure:"units"`
	RefreshIntervalSec int              `mapstructure:"refresh_interval_sec"`
	CountryBias        string           `mapstructure:"country_bias"`
	DefaultCity        string           `mapstructure:"default_city"`
	RecentLocations    []RecentLocation `mapstructure:"recent_locations"`
}

// RecentLocation is the persisted form of a previously used location.
type RecentLocation struct {
	Name      string  `mapstructure:"name" json:"name"`
	Latitude  float64 `mapstructure:"latitude" json:"latitude"`
	Longitude float64 `mapstructure:"longitude" json:"longitude"`
	Country   string  `mapstructure:"country" json:"country"`
	ISO       string  `mapstructure:"iso" json:"iso"`
	Admin1    string  `mapstructure:"admin1" json:"admin1"`
	Timezone  string  `mapstructure:"timezone" json:"timezone"`
}

func FromLocation(loc domain.Location) RecentLocation {
	return RecentLocation{
		Name:      loc.Name,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Country:   loc.Country,
		ISO:       loc.CountryISO,
		Admin1:    loc.Admin1,
		Timezone:  loc.Timezone,
	}
}

func (r RecentLocation) ToLocation() domain.Location {
	return domain.Location{
		Name:       r.Name,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Country:    r.Country,
		CountryISO: r.ISO,
		Admin1:     r.Admin1,
		Timezone:   r.Timezone,
	}
}

func Default() Settings {
	return Settings{
		Units:              "celsius",
		RefreshIntervalSec: 600,
		DefaultCity:        "Stockholm",
	}
}

// PushRecent prepends loc, dropping any older entry for the same place and
// truncating to RecentMax.
func (s *Settings) PushRecent(loc domain.Location) {
	entry := FromLocation(loc)
	kept := make([]RecentLocation, 0, len(s.RecentLocations)+1)
	kept = append(kept, entry)
	for _, r := range s.RecentLocations {
		if r.ToLocation().SamePlace(loc) {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) > RecentMax {
		kept = kept[:RecentMax]
	}
	s.RecentLocations = kept
}

// Recents returns the history as locations, most recent first.
func (s *Settings) Recents() []domain.Location {
	out := make([]domain.Location, 0, len(s.RecentLocations))
	for _, r := range s.RecentLocations {
		out = append(out, r.ToLocation())
	}
	return out
}

// Load reads configuration from file and env. Env overrides use the
// SKYCAST_ prefix. A missing or broken config file yields defaults.
func Load() Settings {
	v := viper.New()
	def := Default()

	v.SetDefault("units", def.Units)
	v.SetDefault("refresh_interval_sec", def.RefreshIntervalSec)
	v.SetDefault("country_bias", def.CountryBias)
	v.SetDefault("default_city", def.DefaultCity)

	v.SetConfigType("json")
	if path := os.Getenv("SKYCAST_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("settings")
	}

	v.SetEnvPrefix("SKYCAST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing file is the common first-run case; a corrupt one is recovered
	// by falling back to defaults.
	_ = v.ReadInConfig()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return def
	}
	if !validUnits(s.Units) {
		s.Units = def.Units
	}
	if s.RefreshIntervalSec < 10 {
		s.RefreshIntervalSec = def.RefreshIntervalSec
	}
	return s
}

// Save writes the settings file, creating the config directory if needed.
func Save(s Settings) error {
	path := os.Getenv("SKYCAST_CONFIG")
	if path == "" {
		path = filepath.Join(configDir(), "settings.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set("units", s.Units)
	v.Set("refresh_interval_sec", s.RefreshIntervalSec)
	v.Set("country_bias", s.CountryBias)
	v.Set("default_city", s.DefaultCity)
	v.Set("recent_locations", s.RecentLocations)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func configDir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "skycast")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "skycast")
}

func validUnits(u string) bool {
	return u == "celsius" || u == "fahrenheit"
}
