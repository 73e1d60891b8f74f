package cliconfig

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// CurrentSchemaVersion is the schema this build reads and writes.
//
// v1: flat file with 'mfa_device' and integer 'settle_seconds',
//     no schema_version field.
// v2: 'mfa_serial', duration-string 'settle', explicit schema_version.
const CurrentSchemaVersion = 2

// migration transforms a raw config map from one schema version to the
// next. Migrations are pure: they return a new map and never mutate
// their input.
type migration func(old map[string]any) (map[string]any, error)

var migrations = map[int]migration{
	1: migrateV1toV2,
}

// Migrate applies migrations repeatedly until the map reaches the
// current schema version. It returns the migrated map and the version
// the input started at.
func Migrate(raw map[string]any) (map[string]any, int, error) {
	version := schemaVersion(raw)
	from := version

	current := raw
	for version < CurrentSchemaVersion {
		step, ok := migrations[version]
		if !ok {
			return nil, from, fmt.Errorf("no migration from schema version %d", version)
		}
		next, err := step(current)
		if err != nil {
			return nil, from, fmt.Errorf("migrating from schema version %d: %w", version, err)
		}
		current = next
		version++
	}
	if version > CurrentSchemaVersion {
		return nil, from, fmt.Errorf("config schema version %d is newer than this build supports (%d)",
			version, CurrentSchemaVersion)
	}
	return current, from, nil
}

func schemaVersion(raw map[string]any) int {
	v, ok := raw["schema_version"]
	if !ok {
		return 1 // v1 predates the field
	}
	var version int
	if err := mapstructure.WeakDecode(v, &version); err != nil || version < 1 {
		return 1
	}
	return version
}

func migrateV1toV2(old map[string]any) (map[string]any, error) {
	next := make(map[string]any, len(old)+1)
	for k, v := range old {
		switch k {
		case "mfa_device":
			next["mfa_serial"] = v
		case "settle_seconds":
			var seconds int
			if err := mapstructure.WeakDecode(v, &seconds); err != nil {
				return nil, fmt.Errorf("settle_seconds is not a number: %v", v)
			}
			next["settle"] = fmt.Sprintf("%ds", seconds)
		default:
			next[k] = v
		}
	}
	next["schema_version"] = 2
	return next, nil
}
