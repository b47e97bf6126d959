package cmd

import (
	"fmt"

	"github.com/sonofy/dwhpipe/constants"
	"github.com/spf13/cobra"
)

var twelveFactorCmd = &cobra.Command{
	Use:   "12f",
	Short: `View help notes for running in Twelve-Factor mode`,
	Long: fmt.Sprintf(`
dwhpipe can be controlled by environment variables alone, which suits scheduled
containers and AWS Lambda.

To enable Twelve-Factor mode, set environment variable %[1]s_12FACTOR_MODE=1,
or %[1]s_12FACTOR_MODE=lambda to run as a Lambda handler. Choose the command with
%[1]s_COMMAND (and %[1]s_SUBCOMMAND for "create tables"). Supply flags documented
by the regular command-line usage as:

%[1]s_<flag long-name in upper case>

Config values may be given without a config file as %[1]s_<SECTION>_<KEY>.
For example, this runs the ETL against a Redshift cluster:

export %[1]s_12FACTOR_MODE=1
export %[1]s_COMMAND=etl
export %[1]s_FULL_REFRESH=true
export %[1]s_CLUSTER_HOST=example.abc123.us-west-2.redshift.amazonaws.com
export %[1]s_CLUSTER_DB_NAME=dev
export %[1]s_CLUSTER_DB_USER=awsuser
export %[1]s_CLUSTER_DB_PASSWORD=...
export %[1]s_CLUSTER_DB_PORT=5439
export %[1]s_IAM_ROLE_ARN=arn:aws:iam::123456789012:role/dwhRole
export %[1]s_S3_LOG_DATA=s3://udacity-dend/log_data
export %[1]s_S3_LOG_JSONPATH=s3://udacity-dend/log_json_path.json
export %[1]s_S3_SONG_DATA=s3://udacity-dend/song_data
export %[1]s_S3_REGION=us-west-2

Then execute the CLI tool without any arguments or flags.

`, constants.EnvVarPrefix),
}

func init() {
	rootCmd.AddCommand(twelveFactorCmd)
}
