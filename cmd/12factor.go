package cmd

import (
	"fmt"
	"os"
	"strings"

	c "github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/helper"
	"github.com/sonofy/dwhpipe/logger"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can read environment variables in place of the CLI flags.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		if strings.ToLower(mode) == "lambda" {
			lambdaMode = true
		}
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarSubcommand       = c.EnvVarPrefix + "_" + "SUBCOMMAND"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump        = c.EnvVarPrefix + "_" + "STACK_DUMP"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if os env var envVarTwelveFactorMode is "lambda"
	twelveFactorVars = map[string]string{
		envVarCommand:    "",
		envVarSubcommand: "",
		envVarLogLevel:   "",
		envVarStackDump:  "",
		// Config values
		helper.GetEnvVarName("WAREHOUSE", "TYPE"):      "",
		helper.GetEnvVarName("WAREHOUSE", "DSN"):       "",
		helper.GetEnvVarName("CLUSTER", "HOST"):        "",
		helper.GetEnvVarName("CLUSTER", "DB_PASSWORD"): "",
		helper.GetEnvVarName("S3", "LOG_DATA"):         "",
		helper.GetEnvVarName("S3", "SONG_DATA"):        "",
	}
	twelveFactorVarsSensitive = map[string]string{ // used to flag some of the above variables as being sensitive.
		helper.GetEnvVarName("WAREHOUSE", "DSN"):       "",
		helper.GetEnvVarName("CLUSTER", "DB_PASSWORD"): "",
	}
)

type twelveFactorAction struct {
	runnerFunc func() error
}

// twelveFactorActions maps <command>[-<subcommand>] to the same runner used by the Cobra command.
var twelveFactorActions = map[string]twelveFactorAction{
	c.CommandCreateTables: {runnerFunc: runCreateTables},
	c.CommandEtl:          {runnerFunc: runEtl},
	c.CommandRun:          {runnerFunc: runPipeline},
	c.CommandRefresh:      {runnerFunc: runRefresh},
	c.CommandValidate:     {runnerFunc: runValidate},
	c.CommandPlan:         {runnerFunc: runPlan},
}

// twelveFactorActionKey builds the key used to look up twelveFactorActions.
func twelveFactorActionKey(command string, subcommand string) string {
	command = strings.ToLower(strings.TrimSpace(command))
	subcommand = strings.ToLower(strings.TrimSpace(subcommand))
	if subcommand == "" {
		return command
	}
	return fmt.Sprintf("%v-%v", command, subcommand)
}

func execute12FactorMode(acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "warn")
	stackDumpOnPanic = helper.GetTrueFalseStringAsBool(os.Getenv(envVarStackDump))
	if err := logger.ValidLevel(logLevel); err != nil {
		return fmt.Errorf("bad %v: %w", envVarLogLevel, err)
	}
	log := logger.NewLogger(c.AppName, logLevel, stackDumpOnPanic)
	log.Info(c.AppName, " is running in 12 Factor mode...")
	// Save values for the variables we log.
	for k := range twelveFactorVars { // for each env variable that we need...
		twelveFactorVars[k] = os.Getenv(k)
		if _, sensitive := twelveFactorVarsSensitive[k]; !sensitive { // if the env variable does not contain sensitive values...
			log.Debug(k, "=", twelveFactorVars[k])
		} else {
			log.Debug(k, "=", "<obfuscated>")
		}
	}
	action := twelveFactorActionKey(twelveFactorVars[envVarCommand], twelveFactorVars[envVarSubcommand])
	a, ok := acts[action]
	if !ok {
		err = fmt.Errorf("invalid combination of command (%v) and subcommand (%v)", twelveFactorVars[envVarCommand], twelveFactorVars[envVarSubcommand])
		log.Error(err.Error())
		return
	}
	err = a.runnerFunc()
	if err != nil {
		log.Error("Error: ", err)
	}
	return err
}
