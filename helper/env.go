package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/sonofy/dwhpipe/constants"
)

// ReadValueFromEnv will read the env var called name and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	}
	return fmt.Errorf("value for environment variable %v not found", name)
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" { // if the environment variable is not set and we have been given a default value...
		v = defaultValue
	}
	return
}

// GetEnvVarName joins the parts with underscores after constants.EnvVarPrefix, in upper case with dashes
// converted to underscores, e.g. ("cluster", "db-name") becomes DWH_CLUSTER_DB_NAME.
func GetEnvVarName(parts ...string) string {
	n := make([]string, 0, len(parts)+1)
	n = append(n, constants.EnvVarPrefix)
	for _, p := range parts {
		n = append(n, strings.ReplaceAll(strings.TrimSpace(strings.ToUpper(p)), "-", "_"))
	}
	return strings.Join(n, "_")
}
