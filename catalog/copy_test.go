package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/sonofy/dwhpipe/constants"
)

var testParams = CopyParams{
	LogData:     "s3://udacity-dend/log_data",
	LogJsonPath: "s3://udacity-dend/log_json_path.json",
	SongData:    "s3://udacity-dend/song_data",
	RoleArn:     "arn:aws:iam::123456789012:role/dwhRole",
	Region:      "us-west-2",
}

func TestRedshiftCopyStatements(t *testing.T) {
	cat := New(redshift{}, "")
	stmts, err := cat.CopyStatements(testParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 2 || stmts[0].Table != constants.TableStagingEvents || stmts[1].Table != constants.TableStagingSongs {
		t.Fatalf("unexpected copy statements %v", stmts)
	}
	expected := "COPY staging_events FROM 's3://udacity-dend/log_data' iam_role 'arn:aws:iam::123456789012:role/dwhRole' region 'us-west-2' FORMAT AS JSON 's3://udacity-dend/log_json_path.json';"
	if stmts[0].SQL != expected {
		t.Fatalf("expected:\n%v\ngot:\n%v", expected, stmts[0].SQL)
	}
	expected = "COPY staging_songs FROM 's3://udacity-dend/song_data' iam_role 'arn:aws:iam::123456789012:role/dwhRole' region 'us-west-2' FORMAT AS JSON 'auto' TRUNCATECOLUMNS BLANKSASNULL EMPTYASNULL;"
	if stmts[1].SQL != expected {
		t.Fatalf("expected:\n%v\ngot:\n%v", expected, stmts[1].SQL)
	}
}

func TestCopyStatementsMissingParams(t *testing.T) {
	cases := []struct {
		mutate  func(p *CopyParams)
		missing string
	}{
		{func(p *CopyParams) { p.LogData = "" }, "S3.LOG_DATA"},
		{func(p *CopyParams) { p.LogJsonPath = "" }, "S3.LOG_JSONPATH"},
		{func(p *CopyParams) { p.RoleArn = " " }, "IAM_ROLE.ARN"},
		{func(p *CopyParams) { p.Region = "" }, "S3.REGION"},
		{func(p *CopyParams) { p.SongData = "" }, "S3.SONG_DATA"},
	}
	for i, c := range cases {
		p := testParams
		c.mutate(&p)
		_, err := New(redshift{}, "").CopyStatements(p)
		if !errors.Is(err, ErrMissingCopyParameter) {
			t.Fatalf("case %v: expected ErrMissingCopyParameter; got %v", i, err)
		}
		if !strings.Contains(err.Error(), c.missing) {
			t.Fatalf("case %v: expected error to name %v; got %v", i, c.missing, err)
		}
	}
}

func TestCopyEscapesQuotes(t *testing.T) {
	p := testParams
	p.LogData = "s3://bucket/o'brien"
	stmts, err := New(redshift{}, "").CopyStatements(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmts[0].SQL, "FROM 's3://bucket/o''brien'") {
		t.Fatalf("expected doubled quote; got %v", stmts[0].SQL)
	}
}

func TestSnowflakeCopyStatements(t *testing.T) {
	stmts, err := New(snowflake{}, "").CopyStatements(testParams)
	if err != nil {
		t.Fatal(err)
	}
	expected := "COPY INTO staging_events FROM 's3://udacity-dend/log_data' CREDENTIALS = (AWS_ROLE = 'arn:aws:iam::123456789012:role/dwhRole') FILE_FORMAT = (TYPE = JSON) MATCH_BY_COLUMN_NAME = CASE_INSENSITIVE;"
	if stmts[0].SQL != expected {
		t.Fatalf("expected:\n%v\ngot:\n%v", expected, stmts[0].SQL)
	}
	if !strings.Contains(stmts[1].SQL, "NULL_IF = ('')") || !strings.HasSuffix(stmts[1].SQL, "TRUNCATECOLUMNS = TRUE;") {
		t.Fatalf("unexpected songs copy %v", stmts[1].SQL)
	}
	// Storage integration replaces credentials and the role is no longer required.
	p := testParams
	p.RoleArn = ""
	p.StorageIntegration = "s3_int"
	stmts, err = New(snowflake{}, "").CopyStatements(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmts[0].SQL, "STORAGE_INTEGRATION = s3_int") || strings.Contains(stmts[0].SQL, "CREDENTIALS") {
		t.Fatalf("unexpected integration copy %v", stmts[0].SQL)
	}
	// The integration name is rendered unquoted so it must be a plain identifier.
	p.StorageIntegration = "s3_int; DROP TABLE users"
	if _, err = New(snowflake{}, "").CopyStatements(p); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier; got %v", err)
	}
}

func TestPostgresHasNoServerSideCopy(t *testing.T) {
	_, err := New(postgres{}, "").CopyStatements(testParams)
	if !errors.Is(err, ErrNoServerSideCopy) {
		t.Fatalf("expected ErrNoServerSideCopy; got %v", err)
	}
}

func TestCopySpecs(t *testing.T) {
	specs := CopySpecs(testParams)
	if !specs[0].UsesJsonPaths() || specs[1].UsesJsonPaths() {
		t.Fatal("expected events to use jsonpaths and songs to use auto")
	}
	if specs[0].TruncateColumns || !specs[1].TruncateColumns || !specs[1].BlanksAsNull || !specs[1].EmptyAsNull {
		t.Fatalf("unexpected copy options %+v", specs)
	}
}

func TestCopySpecValidate(t *testing.T) {
	specs := CopySpecs(CopyParams{SongData: "file:///data/song_data"})
	err := specs[0].Validate()
	if !errors.Is(err, ErrMissingCopyParameter) || !strings.Contains(err.Error(), "S3.LOG_DATA, S3.LOG_JSONPATH") {
		t.Fatalf("expected both event parameters to be reported; got %v", err)
	}
	if err := specs[1].Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
