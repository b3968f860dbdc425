package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// durationPattern matches the strings time.ParseDuration accepts.
const durationPattern = `^-?([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// GenerateSchema returns the JSON schema of the configuration file, indented
// for humans. Keys follow the mapstructure names viper reads.
func GenerateSchema(version string) ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "mapstructure",
		Mapper:                    mapDuration,
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "wwwserver Configuration"
	schema.Description = "Configuration file of the wwwserver web server"
	schema.Comments = "Generated for wwwserver " + version

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return append(out, '\n'), nil
}

// mapDuration describes durations as the strings the config file uses
// ("30s", "1m30s") instead of integer nanoseconds.
func mapDuration(t reflect.Type) *jsonschema.Schema {
	if t != reflect.TypeOf(time.Duration(0)) {
		return nil
	}
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     durationPattern,
		Description: "Go duration, e.g. 500ms, 30s, 5m",
	}
}
