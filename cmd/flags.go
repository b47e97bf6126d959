package cmd

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/sonofy/dwhpipe/actions"
	"github.com/sonofy/dwhpipe/config"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/helper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	"config": cliFlag{name: "config", shortHand: "c",
		desc: fmt.Sprintf("The INI or YAML config `<file>` holding sections CLUSTER, IAM_ROLE, S3 and WAREHOUSE\n"+
			"(default: ./%v then ~/%v/%v)", constants.ConfigFileName, constants.ConfigDir, constants.ConfigFileName)},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug\""},
	"dry-run": cliFlag{name: "dry-run", shortHand: "d",
		desc: "Print the SQL without connecting to the warehouse"},
	"create-tables": cliFlag{name: "create-tables", shortHand: "C",
		desc: "Drop and recreate all tables before loading"},
	"full-refresh": cliFlag{name: "full-refresh", shortHand: "r",
		desc: "Empty the fact and dimension tables before the inserts so they\n" +
			"reflect only the current staging data"},
	"check-sources": cliFlag{name: "check-sources", shortHand: "k",
		desc: "Check the S3 sources and JSONPaths descriptor exist before loading"},
	"single-transaction": cliFlag{name: "single-transaction", shortHand: "t",
		desc: "Run every statement in one transaction so a failure leaves the warehouse unchanged.\n" +
			"Not available for Snowflake, whose DDL commits, or Postgres, which loads staging tables\n" +
			"from the client"},
	"output": cliFlag{name: "output", shortHand: "o",
		desc: "Output format"},
	"all": cliFlag{name: "all", shortHand: "a",
		desc: "Count rows in every table instead of artists, users, songs and staging_songs"},
	"tables": cliFlag{name: "tables", shortHand: "T",
		desc: "The <CSV of tables> to count (ignored with --all)"},
	"sample": cliFlag{name: "sample", shortHand: "n",
		desc: "Print up to <n> rows of each table after the counts"},
	"warehouse-type": cliFlag{name: "warehouse-type", shortHand: "w",
		desc: "Override WAREHOUSE.TYPE from the config: \"redshift | snowflake | postgres\""},
}

// defaultsFile stores default flag values; nil if the home directory could not be found.
var defaultsFile = getDefaultsFile()

func getDefaultsFile() *config.File {
	f, err := config.NewDefaultsFile()
	if err != nil {
		return nil
	}
	return f
}

// getDefaultsStore returns the store used by the "config defaults" commands.
func getDefaultsStore() (actions.DefaultsStore, error) {
	if twelveFactorMode {
		return nil, fmt.Errorf("defaults cannot be configured when %v is set", envVarTwelveFactorMode)
	}
	if defaultsFile == nil {
		return nil, errors.New("unable to find the home directory to store defaults")
	}
	return defaultsFile, nil
}

// getDefault fetches key from the defaults file if there is one.
func getDefault(key string, out interface{}) error {
	if defaultsFile == nil {
		return config.KeyNotFoundError{}
	}
	return defaultsFile.Get(key, out)
}

// addFlag add a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// When running in twelveFactorMode, the targetVar is populated using the value of environment variable for the supplied
// name, or if not set then the supplied default value is used.
// When NOT running in twelveFactorMode, the default value is fetched from the defaults file if it exists else the
// supplied defaultValue is applied.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue, getDefault) // get the cliFlag details, with defaults taken from config or the supplied defaultValue
	desc := sw.desc + desc2
	// Apply the flag.
	switch p := targetVar.(type) {
	case *string:
		if twelveFactorMode {
			*p = sw.val
		} else {
			c.Flags().StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
			// Signal that the flag was set so defaults take effect.
			if sw.val != "" { // if there is a value via config or default...
				mustSetFlag(c.Flags(), sw.name, sw.val)
			}
		}
	case *bool:
		defaultBool := helper.GetTrueFalseStringAsBool(sw.val)
		if twelveFactorMode {
			*p = defaultBool
		} else {
			c.Flags().BoolVarP(p, sw.name, sw.shortHand, defaultBool, desc)
			mustSetFlag(c.Flags(), sw.name, strconv.FormatBool(defaultBool))
		}
	case *int:
		defaultInt, err := strconv.Atoi(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
			os.Exit(1)
		}
		if twelveFactorMode {
			*p = defaultInt
		} else {
			c.Flags().IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
			if sw.val != "" {
				mustSetFlag(c.Flags(), sw.name, sw.val)
			}
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	// Optionally mark the flag as mandatory.
	if required && !twelveFactorMode { // if the flag is required...
		_ = c.MarkFlagRequired(sw.name)
	}
}

// getCliFlag fetches the value of name from the environment, when running in twelveFactorMode,
// else read the defaults file to find it.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string, fnGetConfig func(key string, out interface{}) error) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	if twelveFactorMode { // if we should read env vars...
		if err := helper.ReadValueFromEnv(flagNameToEnvVar(name), &s.val); err != nil { // if there's no value for the env var...
			// Apply the default.
			s.val = defaultValue
		}
	} else { // else check the config file or apply default...
		err := fnGetConfig(s.name, &s.val)
		if err != nil || s.val == "" { // if there was no key found...
			// Apply the default.
			s.val = defaultValue
		}
	}
	return s
}

// addCommonFlags adds the flags every warehouse command accepts.
func addCommonFlags(c *cobra.Command, cc *actions.CommonConfig, defaultLogLevel string) {
	switches.addFlag(c, &cc.ConfigFile, "config", "", false, "")
	switches.addFlag(c, &cc.LogLevel, "log-level", defaultLogLevel, false, "")
	switches.addFlag(c, &cc.DryRun, "dry-run", "false", false, "")
	_ = c.MarkFlagFilename("config", "cfg", "ini", "yaml", "yml")
	c.Flags().SortFlags = false
	c.SilenceUsage = true
}

// applyGlobals copies values held outside the command config into cc just before it runs.
func applyGlobals(cc *actions.CommonConfig) {
	cc.StackDumpOnPanic = stackDumpOnPanic
	cc.AllowEnvOnly = twelveFactorMode
}

// flagNameToEnvVar will form a sanitised environment variable name using constants.EnvVarPrefix.
func flagNameToEnvVar(name string) string {
	return constants.EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func mustSetFlag(f *pflag.FlagSet, name string, val string) {
	if err := f.Set(name, val); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
