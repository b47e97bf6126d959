//go:build integration
// +build integration

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/sonofy/dwhpipe/actions"
	"github.com/sonofy/dwhpipe/aws/s3"
	"github.com/sonofy/dwhpipe/catalog"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/helper"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/pipeline"
	"github.com/sonofy/dwhpipe/rdbms"
	"github.com/sonofy/dwhpipe/rdbms/shared"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Tests require docker. Run with: go test -tags integration ./cmd/...

const (
	testBucket   = "sparkify"
	testRegion   = "us-east-1"
	logJsonPaths = `{"jsonpaths": ["$['artist']", "$['auth']", "$['firstName']", "$['gender']", "$['itemInSession']",
"$['lastName']", "$['length']", "$['level']", "$['location']", "$['method']", "$['page']", "$['registration']",
"$['sessionId']", "$['song']", "$['status']", "$['ts']", "$['userAgent']", "$['userId']"]}`
	logEvents    = `{"artist":"Des'ree","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":1,"lastName":"Summers","length":246.30812,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"You Gotta Be","status":200,"ts":1541106106796,"userAgent":"Mozilla/5.0","userId":"8"}
{"artist":null,"auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":2,"lastName":"Summers","length":null,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"GET","page":"Upgrade","registration":1540344794796.0,"sessionId":139,"song":null,"status":200,"ts":1541106132796,"userAgent":"Mozilla/5.0","userId":"8"}
{"artist":"Mr Oizo","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":3,"lastName":"Summers","length":144.03873,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"Flat 55","status":200,"ts":1541106352796,"userAgent":"Mozilla/5.0","userId":"8"}
`
	songRecord   = `{"num_songs": 1, "artist_id": "ARMJAGH1187FB546F3", "artist_latitude": 35.14968, "artist_longitude": -90.04892, "artist_location": "Memphis, TN", "artist_name": "Des'ree", "song_id": "SOCIWDW12A8C13D406", "title": "You Gotta Be", "duration": 246.30812, "year": 1994}`
)

func startMinio(ctx context.Context, t *testing.T) string {
	minioContainer, err := minio.Run(ctx, "minio/minio:latest",
		minio.WithUsername("minioadmin"),
		minio.WithPassword("minioadmin"),
	)
	testcontainers.CleanupContainer(t, minioContainer)
	require.NoError(t, err)
	host, err := minioContainer.Host(ctx)
	require.NoError(t, err)
	if host == "localhost" {
		host = "127.0.0.1"
	}
	port, err := minioContainer.MappedPort(ctx, "9000")
	require.NoError(t, err)
	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	// The staging loader uses the default credential chain.
	t.Setenv("AWS_ACCESS_KEY_ID", minioContainer.Username)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioContainer.Password)
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(testRegion),
		Endpoint:         aws.String(endpoint),
		Credentials:      credentials.NewStaticCredentials(minioContainer.Username, minioContainer.Password, ""),
		S3ForcePathStyle: aws.Bool(true),
		DisableSSL:       aws.Bool(true),
	})
	require.NoError(t, err)
	_, err = awss3.New(sess).CreateBucketWithContext(ctx, &awss3.CreateBucketInput{Bucket: aws.String(testBucket)})
	require.NoError(t, err)
	c, err := s3.NewBasicClientWithConfig(s3.ClientConfig{Bucket: testBucket, Region: testRegion, Endpoint: endpoint})
	require.NoError(t, err)
	require.NoError(t, c.Put("log_json_path.json", []byte(logJsonPaths)))
	require.NoError(t, c.Put("log_data/2018/11/2018-11-01-events.json", []byte(logEvents)))
	require.NoError(t, c.Put("song_data/A/A/A/TRAAAAK128F9318786.json", []byte(songRecord)))
	return endpoint
}

func startPostgres(ctx context.Context, t *testing.T) string {
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sparkify"),
		postgres.WithUsername("student"),
		postgres.WithPassword("student"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pgContainer)
	require.NoError(t, err)
	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestRunPostgresFromMinio(t *testing.T) {
	ctx := context.Background()
	endpoint := startMinio(ctx, t)
	dsn := startPostgres(ctx, t)
	cfgFile := filepath.Join(t.TempDir(), "dwh.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(fmt.Sprintf(`warehouse:
  type: %v
  dsn: %v
s3:
  log_data: s3://%[3]v/log_data
  log_jsonpath: s3://%[3]v/log_json_path.json
  song_data: s3://%[3]v/song_data
  region: %v
  endpoint: %v
`, constants.ConnectionTypePostgres, dsn, testBucket, testRegion, endpoint)), 0600))
	cc := actions.CommonConfig{ConfigFile: cfgFile, LogLevel: "warn", Out: &bytes.Buffer{}}

	// Run twice: tables are recreated so counts do not double.
	for i := 0; i < 2; i++ {
		require.NoError(t, actions.RunPipeline(&actions.EtlConfig{CommonConfig: cc, CheckSources: true}))
	}

	out := &bytes.Buffer{}
	cc.Out = out
	require.NoError(t, actions.RunValidate(&actions.ValidateConfig{CommonConfig: cc, All: true, Output: constants.OutputCsv}))
	require.Equal(t, `table,rows,error
staging_events,3,
staging_songs,1,
users,1,
songs,1,
artists,1,
time,2,
songplays,1,
`, out.String())

	// A refresh rebuilds the same star schema from staging.
	cc.Out = &bytes.Buffer{}
	require.NoError(t, actions.RunRefresh(&actions.RefreshConfig{CommonConfig: cc}))
	out.Reset()
	cc.Out = out
	require.NoError(t, actions.RunValidate(&actions.ValidateConfig{CommonConfig: cc, Output: constants.OutputCsv}))
	require.Equal(t, "table,rows,error\nartists,1,\nusers,1,\nsongs,1,\nstaging_songs,1,\n", out.String())
}

// stringRows collects query results as strings.
type stringRows struct {
	rows [][]string
}

func (r *stringRows) HandleHeader(i []interface{}) error {
	return nil
}

func (r *stringRows) HandleRow(i []interface{}) error {
	r.rows = append(r.rows, helper.InterfaceToString(i))
	return nil
}

func queryStrings(ctx context.Context, t *testing.T, log logger.Logger, db shared.Connector, sqltext string) [][]string {
	t.Helper()
	h := &stringRows{rows: make([][]string, 0)}
	require.NoError(t, rdbms.SqlQuery(ctx, log, db, sqltext, h))
	return h.rows
}

func execAll(ctx context.Context, t *testing.T, db shared.Connector, sqltext ...string) {
	t.Helper()
	for _, s := range sqltext {
		_, err := db.ExecContext(ctx, s)
		require.NoError(t, err, s)
	}
}

func TestStarSchemaOnPostgres(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(ctx, t)
	log := logger.NewLogger("integration test", "warn", false)
	db, err := rdbms.OpenDbConnection(ctx, log, shared.ConnectionDetails{
		Type:        constants.ConnectionTypePostgres,
		LogicalName: "sparkify",
		Data:        map[string]string{shared.DefaultDsnConnectionKeyNames.Dsn: dsn},
	})
	require.NoError(t, err)
	defer db.Close()
	cat, err := catalog.NewForConnectionType(constants.ConnectionTypePostgres, "")
	require.NoError(t, err)
	r, err := pipeline.NewRunner(&pipeline.RunnerConfig{Log: log, Db: db, Catalog: cat, Out: io.Discard})
	require.NoError(t, err)
	const listTables = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`

	t.Run("drops twice", func(t *testing.T) {
		require.NoError(t, r.DropTables(ctx))
		require.NoError(t, r.DropTables(ctx))
		require.Empty(t, queryStrings(ctx, t, log, db, listTables))
	})

	t.Run("creates twice", func(t *testing.T) {
		creates, err := cat.CreateStatements()
		require.NoError(t, err)
		for _, s := range creates {
			execAll(ctx, t, db, s.SQL)
		}
		before := queryStrings(ctx, t, log, db, listTables)
		require.Len(t, before, 7)
		for _, s := range creates {
			execAll(ctx, t, db, s.SQL)
		}
		require.Equal(t, before, queryStrings(ctx, t, log, db, listTables))
	})

	t.Run("end to end rows", func(t *testing.T) {
		require.NoError(t, r.CreateTables(ctx))
		execAll(ctx, t, db,
			`INSERT INTO staging_events (userId, firstName, lastName, gender, level, song, artist, length, page, ts, sessionId, location, userAgent)
VALUES (10, 'Ann', 'K', 'F', 'free', 'Song A', 'Artist X', 200.0, 'NextSong', 1541980278796, 5, 'NY', 'UA1')`,
			`INSERT INTO staging_songs (song_id, artist_id, artist_name, title, duration, year)
VALUES ('S1', 'A1', 'Artist X', 'Song A', 200.0, 2000)`,
		)
		require.NoError(t, r.InsertTables(ctx))
		require.Equal(t, [][]string{{"10", "free"}},
			queryStrings(ctx, t, log, db, "SELECT user_id, level FROM users"))
		require.Equal(t, [][]string{{"10", "S1", "A1", "5"}},
			queryStrings(ctx, t, log, db, "SELECT user_id, song_id, artist_id, session_id FROM songplays"))
		// 1541980278796 ms is Sunday 2018-11-11 23:51:18 UTC, in ISO week 45. Milliseconds are truncated.
		require.Equal(t, [][]string{{"2018-11-11 23:51:18", "23", "11", "45", "11", "2018", "0"}},
			queryStrings(ctx, t, log, db, "SELECT to_char(start_time, 'YYYY-MM-DD HH24:MI:SS'), hour, day, week, month, year, weekday FROM time"))
	})

	t.Run("no songplay without a NextSong match", func(t *testing.T) {
		require.NoError(t, r.CreateTables(ctx))
		execAll(ctx, t, db,
			`INSERT INTO staging_events (userId, level, song, artist, length, page, ts, sessionId)
VALUES (10, 'free', 'Song A', 'Artist X', 200.0, 'Home', 1541980278796, 5),
	(11, 'paid', 'Song B', 'Nobody', 100.0, 'NextSong', 1541980279796, 6)`,
			`INSERT INTO staging_songs (song_id, artist_id, artist_name, title, duration, year)
VALUES ('S1', 'A1', 'Artist X', 'Song A', 200.0, 2000)`,
		)
		require.NoError(t, r.InsertTables(ctx))
		n, err := rdbms.QueryCount(ctx, db, "SELECT COUNT(*) FROM songplays")
		require.NoError(t, err)
		require.Equal(t, int64(0), n)
	})

	t.Run("duplicate song ids keep one row", func(t *testing.T) {
		require.NoError(t, r.CreateTables(ctx))
		execAll(ctx, t, db, `INSERT INTO staging_songs (song_id, artist_id, artist_name, title, duration, year)
VALUES ('S1', 'A1', 'Artist X', 'Song A', 200.0, 2000),
	('S1', 'A1', 'Artist X', 'Song A (Live)', 200.0, 2000)`)
		// Postgres enforces the primary key so the insert skips the conflicting row.
		require.NoError(t, r.InsertTables(ctx))
		n, err := rdbms.QueryCount(ctx, db, "SELECT COUNT(*) FROM songs WHERE song_id = 'S1'")
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})
}
