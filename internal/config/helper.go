package config

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// durationPtr returns a pointer to a time.Duration.
func durationPtr(t time.Duration) *time.Duration {
	return &t
}

// intPtr returns a pointer to an int.
func intPtr(i int) *int {
	return &i
}

// decode decodes a string map of configuration data as provided by Viper
// into out, converting duration strings.
func decode(in map[string]interface{}, out interface{}) error {

	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		panic(err)
	}

	return d.Decode(in)
}
