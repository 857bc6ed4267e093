package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jmorganca/modalfusion/logutil"
)

var (
	// Set via MODALFUSION_DEBUG in the environment
	Debug bool
	// Set via MODALFUSION_TRACE in the environment
	Trace bool
	// Set via MODALFUSION_SEED in the environment
	Seed uint64
	// Set via MODALFUSION_PARAMS in the environment
	ParamsPath string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"MODALFUSION_DEBUG":  {"MODALFUSION_DEBUG", Debug, "Show additional debug information (e.g. MODALFUSION_DEBUG=1)"},
		"MODALFUSION_TRACE":  {"MODALFUSION_TRACE", Trace, "Log per-modality tensor shapes during fusion"},
		"MODALFUSION_SEED":   {"MODALFUSION_SEED", Seed, "Seed for weight initialization and dropout (default 0 = random)"},
		"MODALFUSION_PARAMS": {"MODALFUSION_PARAMS", ParamsPath, "Path to the params file used when --params is not given"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = false
	if debug := clean("MODALFUSION_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	Trace = false
	if trace := clean("MODALFUSION_TRACE"); trace != "" {
		d, err := strconv.ParseBool(trace)
		if err == nil {
			Trace = d
		} else {
			Trace = true
		}
	}

	Seed = 0
	if seed := clean("MODALFUSION_SEED"); seed != "" {
		s, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			slog.Error("invalid setting, ignoring", "MODALFUSION_SEED", seed, "error", err)
		} else {
			Seed = s
		}
	}

	ParamsPath = clean("MODALFUSION_PARAMS")
}

// LogLevel returns the slog level implied by MODALFUSION_DEBUG and MODALFUSION_TRACE.
func LogLevel() slog.Level {
	switch {
	case Trace:
		return logutil.LevelTrace
	case Debug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
