package constants

// Tool

const (
	AppName          = "dwhpipe"
	EnvVarPrefix     = "DWH" // prefixed for environment variables in twelveFactorMode and config overrides
	ConfigDir        = ".dwhpipe"
	ConfigFileName   = "dwh.cfg"
	DefaultsFileName = "defaults.yaml"
	EmojiBang        = "\U0001F4A5"
)

// Warehouse connection types.

const (
	ConnectionTypeRedshift  = "redshift"
	ConnectionTypePostgres  = "postgres"
	ConnectionTypeSnowflake = "snowflake"
	ConnectionTypeS3        = "s3"
	ConnectionTypeFile      = "file"
)

// Tables.

const (
	TableStagingEvents = "staging_events"
	TableStagingSongs  = "staging_songs"
	TableSongplays     = "songplays"
	TableUsers         = "users"
	TableSongs         = "songs"
	TableArtists       = "artists"
	TableTime          = "time"
)

// Loading.

const (
	PageNextSong             = "NextSong"
	CopyFormatAuto           = "auto"
	DefaultVarcharWidth      = 256 // width applied to VARCHAR columns declared without one
	StagingBatchRows         = 5000
	StatsLogFrequencySeconds = 30
	TimeFormatRunStarted     = "20060102T150405"
	TimeFormatRunStartedRe   = "[0-9]{8}T[0-9]{6}"
)

// Commands.

const (
	CommandCreateTables = "create-tables"
	CommandEtl          = "etl"
	CommandRun          = "run"
	CommandRefresh      = "refresh"
	CommandValidate     = "validate"
	CommandPlan         = "plan"
)

// Output formats.

const (
	OutputYaml  = "yaml"
	OutputJson  = "json"
	OutputSql   = "sql"
	OutputTable = "table"
	OutputCsv   = "csv"
)
