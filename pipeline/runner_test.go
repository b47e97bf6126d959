package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"testing"

	"github.com/sonofy/dwhpipe/catalog"
	"github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/logger"
	"github.com/sonofy/dwhpipe/rdbms"
	"github.com/sonofy/dwhpipe/rdbms/shared"
	"github.com/sonofy/dwhpipe/staging"
	"github.com/sonofy/dwhpipe/stats"
)

var testParams = catalog.CopyParams{
	LogData:     "s3://udacity-dend/log_data",
	LogJsonPath: "s3://udacity-dend/log_json_path.json",
	SongData:    "s3://udacity-dend/song_data",
	RoleArn:     "arn:aws:iam::123456789012:role/dwhRole",
	Region:      "us-west-2",
}

func newTestRunner(t *testing.T, dbType string, mutate func(cfg *RunnerConfig)) (*Runner, *shared.MockConnection) {
	t.Helper()
	log := logger.NewLogger("pipeline test", "error", false)
	db, _ := shared.NewMockConnectionWithMockTx(log, dbType)
	cat, err := catalog.NewForConnectionType(dbType, "")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &RunnerConfig{Log: log, Db: db, Catalog: cat, Out: ioutil.Discard}
	if mutate != nil {
		mutate(cfg)
	}
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return r, db
}

// statements drops the transaction events leaving only SQL.
func statements(events []string) []string {
	retval := make([]string, 0, len(events))
	for _, e := range events {
		switch e {
		case shared.MockEventBegin, shared.MockEventCommit, shared.MockEventRollback:
		default:
			retval = append(retval, e)
		}
	}
	return retval
}

func count(events []string, e string) int {
	n := 0
	for _, x := range events {
		if x == e {
			n++
		}
	}
	return n
}

func TestNewRunnerRequiresConnection(t *testing.T) {
	log := logger.NewLogger("pipeline test", "error", false)
	cat, _ := catalog.NewForConnectionType(constants.ConnectionTypeRedshift, "")
	_, err := NewRunner(&RunnerConfig{Log: log, Catalog: cat})
	if err == nil || !strings.Contains(err.Error(), "warehouse connection") {
		t.Fatalf("expected missing connection error; got %v", err)
	}
	if _, err := NewRunner(&RunnerConfig{Log: log, Catalog: cat, DryRun: true}); err != nil {
		t.Fatalf("expected a dry run to need no connection; got %v", err)
	}
}

func TestRunCommitsEachStatement(t *testing.T) {
	r, db := newTestRunner(t, constants.ConnectionTypeRedshift, nil)
	if err := r.Run(context.Background(), Options{CreateTables: true, CopyParams: testParams}); err != nil {
		t.Fatal(err)
	}
	events := db.Events()
	sqls := statements(events)
	if len(sqls) != 7+7+2+5 {
		t.Fatalf("expected 21 statements; got %v", len(sqls))
	}
	if count(events, shared.MockEventBegin) != 21 || count(events, shared.MockEventCommit) != 21 {
		t.Fatalf("expected a transaction per statement; got %v", events)
	}
	// Each statement sits between its own BEGIN and COMMIT.
	for i := 0; i < len(events); i += 3 {
		if events[i] != shared.MockEventBegin || events[i+2] != shared.MockEventCommit {
			t.Fatalf("unexpected transaction boundary at event %v: %v", i, events[i:i+3])
		}
	}
	prefixes := []string{"DROP TABLE IF EXISTS staging_events", "CREATE TABLE IF NOT EXISTS staging_events", "COPY staging_events", "INSERT INTO songplays"}
	for i, idx := range []int{0, 7, 14, 16} {
		if !strings.HasPrefix(sqls[idx], prefixes[i]) {
			t.Fatalf("expected statement %v to start with %q; got %q", idx, prefixes[i], sqls[idx])
		}
	}
	if !strings.HasPrefix(sqls[20], "INSERT INTO time") {
		t.Fatalf("expected time to be inserted last; got %q", sqls[20])
	}
	s := r.Stats().GetStats()
	if len(s) != 21 || s[20].StatusText != stats.StatusComplete {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	r, db := newTestRunner(t, constants.ConnectionTypeRedshift, nil)
	db.FailOn = "INSERT INTO users"
	err := r.Run(context.Background(), Options{CopyParams: testParams})
	var se *StatementError
	if !errors.As(err, &se) || se.Phase != catalog.PhaseInsert || se.Table != constants.TableUsers {
		t.Fatalf("expected insert users StatementError; got %v", err)
	}
	if !errors.Is(err, shared.ErrMockExec) {
		t.Fatalf("expected the driver error to be wrapped; got %v", err)
	}
	events := db.Events()
	if events[len(events)-1] != shared.MockEventRollback {
		t.Fatalf("expected the failed statement to be rolled back; got %v", events)
	}
	for _, e := range events {
		if strings.HasPrefix(e, "INSERT INTO songs") {
			t.Fatal("expected no statements after the failure")
		}
	}
	last := r.Stats().GetStats()
	if last[len(last)-1].StatusText != stats.StatusFailed {
		t.Fatalf("expected the failed step to be recorded; got %+v", last)
	}
}

func TestRunMissingCopyParameters(t *testing.T) {
	r, db := newTestRunner(t, constants.ConnectionTypeRedshift, nil)
	p := testParams
	p.RoleArn = ""
	err := r.Run(context.Background(), Options{CopyParams: p})
	if !errors.Is(err, catalog.ErrMissingCopyParameter) {
		t.Fatalf("expected ErrMissingCopyParameter; got %v", err)
	}
	if len(db.Events()) != 0 {
		t.Fatal("expected nothing to be executed")
	}
}

func TestRunSingleTransaction(t *testing.T) {
	r, db := newTestRunner(t, constants.ConnectionTypeRedshift, nil)
	err := r.Run(context.Background(), Options{CreateTables: true, FullRefresh: true, SingleTransaction: true, CopyParams: testParams})
	if err != nil {
		t.Fatal(err)
	}
	events := db.Events()
	if count(events, shared.MockEventBegin) != 1 || count(events, shared.MockEventCommit) != 1 {
		t.Fatalf("expected one transaction; got %v", events)
	}
	if events[0] != shared.MockEventBegin || events[len(events)-1] != shared.MockEventCommit {
		t.Fatalf("expected the run to be wrapped in one transaction; got %v", events)
	}
	for _, e := range events {
		if strings.HasPrefix(e, "TRUNCATE") {
			t.Fatalf("expected DELETE instead of TRUNCATE inside a transaction; got %q", e)
		}
	}
	if count(events, "DELETE FROM users;") != 1 {
		t.Fatalf("expected users to be emptied with DELETE; got %v", events)
	}
}

func TestRunSingleTransactionRollsBack(t *testing.T) {
	r, db := newTestRunner(t, constants.ConnectionTypeRedshift, nil)
	db.FailOn = "COPY staging_songs"
	err := r.Run(context.Background(), Options{CreateTables: true, SingleTransaction: true, CopyParams: testParams})
	if err == nil {
		t.Fatal("expected error")
	}
	events := db.Events()
	if events[len(events)-1] != shared.MockEventRollback || count(events, shared.MockEventCommit) != 0 {
		t.Fatalf("expected everything to be rolled back; got %v", events)
	}
}

func TestSingleTransactionRejected(t *testing.T) {
	cases := []struct {
		dbType   string
		expected error
	}{
		{constants.ConnectionTypeSnowflake, ErrSingleTxAutoCommitDDL},
		{constants.ConnectionTypePostgres, ErrSingleTxClientStaging},
	}
	for _, c := range cases {
		r, db := newTestRunner(t, c.dbType, nil)
		err := r.Run(context.Background(), Options{SingleTransaction: true, CopyParams: testParams})
		if !errors.Is(err, c.expected) {
			t.Fatalf("%v: expected %v; got %v", c.dbType, c.expected, err)
		}
		if len(db.Events()) != 0 {
			t.Fatalf("%v: expected nothing to be executed", c.dbType)
		}
	}
	r, _ := newTestRunner(t, constants.ConnectionTypeSnowflake, nil)
	if err := r.Refresh(context.Background(), true); !errors.Is(err, ErrSingleTxAutoCommitDDL) {
		t.Fatalf("expected snowflake refresh in one transaction to be rejected; got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	r, db := newTestRunner(t, constants.ConnectionTypeRedshift, nil)
	if err := r.Refresh(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	sqls := statements(db.Events())
	if len(sqls) != 10 || sqls[0] != "TRUNCATE songplays;" || !strings.HasPrefix(sqls[5], "INSERT INTO songplays") {
		t.Fatalf("unexpected refresh statements %v", sqls)
	}
	for _, s := range sqls {
		if strings.Contains(s, "staging_") && !strings.HasPrefix(s, "INSERT") {
			t.Fatalf("expected staging tables to be left alone; got %q", s)
		}
	}
}

func TestDryRun(t *testing.T) {
	out := &bytes.Buffer{}
	r, db := newTestRunner(t, constants.ConnectionTypeRedshift, func(cfg *RunnerConfig) {
		cfg.DryRun = true
		cfg.Out = out
	})
	if err := r.Run(context.Background(), Options{CreateTables: true, SingleTransaction: true, CopyParams: testParams}); err != nil {
		t.Fatal(err)
	}
	if len(db.Events()) != 0 {
		t.Fatalf("expected nothing to be executed; got %v", db.Events())
	}
	text := out.String()
	for _, s := range []string{"BEGIN;", "DROP TABLE IF EXISTS songplays;", "COPY staging_songs FROM", "INSERT INTO time", "COMMIT;"} {
		if !strings.Contains(text, s) {
			t.Fatalf("expected dry run output to contain %q:\n%v", s, text)
		}
	}
	for _, s := range r.Stats().GetStats() {
		if s.StatusText != stats.StatusSkipped {
			t.Fatalf("expected every step to be skipped; got %+v", s)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	r, db := newTestRunner(t, constants.ConnectionTypeRedshift, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, Options{CreateTables: true, CopyParams: testParams})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled; got %v", err)
	}
	if len(db.Events()) != 0 {
		t.Fatal("expected nothing to be executed")
	}
}

// memSource is an in-memory object store addressed by mem://<key> URLs.
type memSource map[string]string

func (m memSource) List(prefix string) ([]string, error) {
	keys := make([]string, 0)
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m memSource) Open(key string) (io.ReadCloser, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("no such key %v", key)
	}
	return ioutil.NopCloser(strings.NewReader(v)), nil
}

func (m memSource) Resolve(url string) (staging.Source, string, error) {
	return m, strings.TrimPrefix(url, "mem://"), nil
}

type recordingWriter struct {
	rows map[string]int
}

func (w *recordingWriter) WriteRows(ctx context.Context, table rdbms.SchemaTable, columns []string, rows [][]interface{}) (int64, error) {
	w.rows[table.String()] += len(rows)
	return int64(len(rows)), nil
}

func TestClientSideStaging(t *testing.T) {
	src := memSource{
		"log_data/2018-11-01-events.json": `{"artist":null,"auth":"Logged In","firstName":"Walter","gender":"M","itemInSession":0,"lastName":"Frye","length":null,"level":"free","location":"San Francisco-Oakland-Hayward, CA","method":"GET","page":"Home","registration":1540919166796.0,"sessionId":38,"song":null,"status":200,"ts":1541105830796,"userAgent":"Mozilla","userId":"39"}
{"artist":"Des'ree","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":1,"lastName":"Summers","length":246.30812,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"You Gotta Be","status":200,"ts":1541106106796,"userAgent":"Mozilla","userId":"8"}`,
		"song_data/A/TRAAAAW128F429D538.json": `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`,
	}
	w := &recordingWriter{rows: make(map[string]int)}
	r, db := newTestRunner(t, constants.ConnectionTypePostgres, func(cfg *RunnerConfig) {
		cfg.Resolver = src
		cfg.Writer = w
	})
	p := catalog.CopyParams{LogData: "mem://log_data", LogJsonPath: "auto", SongData: "mem://song_data"}
	if err := r.Run(context.Background(), Options{CreateTables: true, CheckSources: true, CopyParams: p}); err != nil {
		t.Fatal(err)
	}
	if w.rows["staging_events"] != 2 || w.rows["staging_songs"] != 1 {
		t.Fatalf("unexpected rows written %v", w.rows)
	}
	if n := r.Stats().TotalRows(string(catalog.PhaseCopy)); n != 3 {
		t.Fatalf("expected 3 staged rows in stats; got %v", n)
	}
	for _, e := range db.Events() {
		if strings.HasPrefix(e, "COPY") {
			t.Fatalf("expected no server side copy; got %q", e)
		}
	}
	if len(statements(db.Events())) != 7+7+5 {
		t.Fatalf("unexpected statements %v", statements(db.Events()))
	}
}

func TestClientSideStagingErrors(t *testing.T) {
	r, _ := newTestRunner(t, constants.ConnectionTypePostgres, nil)
	err := r.LoadStaging(context.Background(), catalog.CopyParams{LogData: "mem://x", LogJsonPath: "auto", SongData: "mem://y"})
	if !errors.Is(err, ErrNoRowWriter) {
		t.Fatalf("expected ErrNoRowWriter; got %v", err)
	}
	r, _ = newTestRunner(t, constants.ConnectionTypePostgres, func(cfg *RunnerConfig) {
		cfg.Resolver = memSource{}
		cfg.Writer = &recordingWriter{rows: make(map[string]int)}
	})
	err = r.LoadStaging(context.Background(), catalog.CopyParams{LogData: "mem://log_data", LogJsonPath: "auto", SongData: "mem://song_data"})
	var se *StatementError
	if !errors.As(err, &se) || se.Table != constants.TableStagingEvents || !errors.Is(err, staging.ErrNoSourceObjects) {
		t.Fatalf("expected staging_events to fail with no objects; got %v", err)
	}
	err = r.LoadStaging(context.Background(), catalog.CopyParams{SongData: "mem://song_data"})
	if !errors.Is(err, catalog.ErrMissingCopyParameter) {
		t.Fatalf("expected ErrMissingCopyParameter; got %v", err)
	}
}

func TestClientSideStagingDryRun(t *testing.T) {
	out := &bytes.Buffer{}
	r, _ := newTestRunner(t, constants.ConnectionTypePostgres, func(cfg *RunnerConfig) {
		cfg.DryRun = true
		cfg.Out = out
	})
	if err := r.LoadStaging(context.Background(), testParams); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "-- load staging_songs from s3://udacity-dend/song_data (format auto)") {
		t.Fatalf("unexpected dry run output %q", out.String())
	}
}
