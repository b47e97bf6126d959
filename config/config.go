package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/helper"
	"github.com/sonofy/dwhpipe/rdbms/shared"
)

// Cluster holds the warehouse endpoint and credentials.
type Cluster struct {
	Host       string `mapstructure:"HOST" errorTxt:"CLUSTER.HOST" mandatory:"yes"`
	DbName     string `mapstructure:"DB_NAME" errorTxt:"CLUSTER.DB_NAME" mandatory:"yes"`
	DbUser     string `mapstructure:"DB_USER" errorTxt:"CLUSTER.DB_USER" mandatory:"yes"`
	DbPassword string `mapstructure:"DB_PASSWORD" errorTxt:"CLUSTER.DB_PASSWORD" mandatory:"yes"`
	DbPort     int    `mapstructure:"DB_PORT" errorTxt:"CLUSTER.DB_PORT" mandatory:"yes"`
}

// IamRole is the role the warehouse assumes to read object storage.
type IamRole struct {
	Arn string `mapstructure:"ARN" errorTxt:"IAM_ROLE.ARN" mandatory:"yes"`
}

// S3 describes where the source data lives.
// LogJsonPath is the JSONPaths descriptor used to map event records onto staging_events columns.
type S3 struct {
	LogData     string `mapstructure:"LOG_DATA" errorTxt:"S3.LOG_DATA" mandatory:"yes"`
	LogJsonPath string `mapstructure:"LOG_JSONPATH" errorTxt:"S3.LOG_JSONPATH" mandatory:"yes"`
	SongData    string `mapstructure:"SONG_DATA" errorTxt:"S3.SONG_DATA" mandatory:"yes"`
	Region      string `mapstructure:"REGION" errorTxt:"S3.REGION"`
	Endpoint    string `mapstructure:"ENDPOINT"`
}

// Warehouse selects the SQL dialect and optionally overrides the connection built from Cluster.
type Warehouse struct {
	Type               string `mapstructure:"TYPE"`
	Dsn                string `mapstructure:"DSN" errorTxt:"WAREHOUSE.DSN" mandatory:"yes"`
	Schema             string `mapstructure:"SCHEMA"`
	StorageIntegration string `mapstructure:"STORAGE_INTEGRATION"`
}

// Config is the full set of pipeline parameters.
// It is passed explicitly to everything that needs it.
type Config struct {
	Cluster   Cluster   `mapstructure:"CLUSTER"`
	IamRole   IamRole   `mapstructure:"IAM_ROLE"`
	S3        S3        `mapstructure:"S3"`
	Warehouse Warehouse `mapstructure:"WAREHOUSE"`
	// Path is the file the values were read from, empty when only the environment was used.
	Path string `mapstructure:"-"`
}

// Load reads the config file at path and applies environment variable overrides.
// If path is empty the default locations are searched; if no file is found then
// values are read from the environment only when allowEnvOnly is set.
func Load(path string, allowEnvOnly bool) (*Config, error) {
	var err error
	if path == "" {
		path, err = FindConfigFile()
		if err != nil && !(allowEnvOnly && errors.As(err, &FileNotFoundError{})) {
			return nil, err
		}
	}
	raw := make(sections)
	if path != "" {
		raw, err = readSections(path)
		if err != nil {
			return nil, err
		}
	}
	c, err := decode(raw)
	if err != nil {
		return nil, err
	}
	c.Path = path
	return c, nil
}

// FindConfigFile returns the first of ./dwh.cfg and ~/.dwhpipe/dwh.cfg that exists.
func FindConfigFile() (string, error) {
	candidates := []string{constants.ConfigFileName}
	if dir, err := getConfigHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, constants.ConfigFileName))
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	return "", FileNotFoundError{name: strings.Join(candidates, " or ")}
}

// decode applies environment overrides to raw and converts the result into a Config.
func decode(raw sections) (*Config, error) {
	applyEnvOverrides(raw)
	c := &Config{}
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           c,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Decode(raw.toMap()); err != nil {
		return nil, errors.Wrap(err, "error decoding config")
	}
	c.Warehouse.Type = strings.ToLower(strings.TrimSpace(c.Warehouse.Type))
	if c.Warehouse.Type == "" {
		c.Warehouse.Type = constants.ConnectionTypeRedshift
	}
	return c, nil
}

// applyEnvOverrides replaces values in raw with any DWH_<SECTION>_<KEY> environment variables that are set.
func applyEnvOverrides(raw sections) {
	for section, keys := range knownKeys() {
		for _, k := range keys {
			var v string
			if err := helper.ReadValueFromEnv(helper.GetEnvVarName(section, k), &v); err == nil {
				raw.set(section, k, v)
			}
		}
	}
}

// knownKeys reflects over the mapstructure tags of Config to list every section and its keys.
func knownKeys() map[string][]string {
	retval := make(map[string][]string)
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		section := f.Tag.Get("mapstructure")
		if f.Type.Kind() != reflect.Struct || section == "-" {
			continue
		}
		for j := 0; j < f.Type.NumField(); j++ {
			retval[section] = append(retval[section], f.Type.Field(j).Tag.Get("mapstructure"))
		}
	}
	return retval
}

// ValidateConnection checks the values needed to connect to the configured warehouse.
// Commands that never load staging tables need nothing more.
func (c *Config) ValidateConnection() error {
	errs := make([]string, 0)
	if err := c.validateConnection(&errs); err != nil {
		return err
	}
	return joinMissing(errs)
}

// Validate checks the connection values plus the sources and credentials needed to load the
// staging tables. All missing values are reported together.
func (c *Config) Validate() error {
	errs := make([]string, 0)
	if err := c.validateConnection(&errs); err != nil {
		return err
	}
	helper.GetStructErrorTxt4UnsetFields(c.S3, &errs)
	switch c.Warehouse.Type {
	case constants.ConnectionTypeRedshift:
		helper.GetStructErrorTxt4UnsetFields(c.IamRole, &errs)
		if c.S3.Region == "" {
			errs = append(errs, "S3.REGION")
		}
	case constants.ConnectionTypeSnowflake:
		if c.Warehouse.StorageIntegration == "" {
			helper.GetStructErrorTxt4UnsetFields(c.IamRole, &errs)
		} else if !helper.IsSqlIdentifier(c.Warehouse.StorageIntegration) {
			return fmt.Errorf("WAREHOUSE.STORAGE_INTEGRATION %q is not a valid identifier", c.Warehouse.StorageIntegration)
		}
	case constants.ConnectionTypePostgres:
		if c.S3.Region == "" && c.usesS3() {
			errs = append(errs, "S3.REGION")
		}
	}
	return joinMissing(errs)
}

func (c *Config) validateConnection(errs *[]string) error {
	switch c.Warehouse.Type {
	case constants.ConnectionTypeRedshift, constants.ConnectionTypePostgres:
		if c.Warehouse.Dsn == "" {
			helper.GetStructErrorTxt4UnsetFields(c.Cluster, errs)
		}
	case constants.ConnectionTypeSnowflake:
		helper.GetStructErrorTxt4UnsetFields(c.Warehouse, errs)
	default:
		return fmt.Errorf("unsupported warehouse type %q", c.Warehouse.Type)
	}
	return nil
}

func joinMissing(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return nil
}

func (c *Config) usesS3() bool {
	for _, p := range []string{c.S3.LogData, c.S3.SongData, c.S3.LogJsonPath} {
		if strings.HasPrefix(strings.ToLower(p), constants.ConnectionTypeS3+"://") {
			return true
		}
	}
	return false
}

// WarehouseDSN returns WAREHOUSE.DSN if it is set, otherwise a URL built from the CLUSTER section
// using the warehouse type as the scheme.
func (c *Config) WarehouseDSN() (string, error) {
	if c.Warehouse.Dsn != "" {
		return c.Warehouse.Dsn, nil
	}
	if c.Warehouse.Type == constants.ConnectionTypeSnowflake {
		return "", errors.New("snowflake connections require WAREHOUSE.DSN")
	}
	if c.Cluster.Host == "" {
		return "", errors.New("missing CLUSTER.HOST")
	}
	u := url.URL{
		Scheme: c.Warehouse.Type,
		User:   url.UserPassword(c.Cluster.DbUser, c.Cluster.DbPassword),
		Host:   net.JoinHostPort(c.Cluster.Host, strconv.Itoa(c.Cluster.DbPort)),
		Path:   "/" + c.Cluster.DbName,
	}
	return u.String(), nil
}

// ConnectionDetails returns the warehouse connection in the form used by package rdbms.
func (c *Config) ConnectionDetails() (shared.ConnectionDetails, error) {
	dsn, err := c.WarehouseDSN()
	if err != nil {
		return shared.ConnectionDetails{}, err
	}
	return shared.ConnectionDetails{
		Type:        c.Warehouse.Type,
		LogicalName: "warehouse",
		Data:        map[string]string{shared.DefaultDsnConnectionKeyNames.Dsn: dsn},
	}, nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
