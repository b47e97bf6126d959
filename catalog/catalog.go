package catalog

import (
	"fmt"
	"strings"

	c "github.com/sonofy/dwhpipe/constants"
	"github.com/sonofy/dwhpipe/rdbms"
	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
)

type Phase string

const (
	PhaseDrop     Phase = "drop"
	PhaseCreate   Phase = "create"
	PhaseCopy     Phase = "copy"
	PhaseInsert   Phase = "insert"
	PhaseTruncate Phase = "truncate"
	PhaseCount    Phase = "count"
	PhaseSample   Phase = "sample"
)

// Statement is one SQL statement and the table it acts on.
type Statement struct {
	Phase Phase  `json:"phase" yaml:"phase"`
	Table string `json:"table" yaml:"table"`
	SQL   string `json:"sql" yaml:"sql"`
}

func (s Statement) String() string {
	return fmt.Sprintf("%v %v", s.Phase, s.Table)
}

var (
	dropOrder   = []string{c.TableStagingEvents, c.TableStagingSongs, c.TableSongplays, c.TableUsers, c.TableSongs, c.TableArtists, c.TableTime}
	insertOrder = []string{c.TableSongplays, c.TableUsers, c.TableSongs, c.TableArtists, c.TableTime}
)

// AnalyticalTables returns the fact and dimension tables in insert order.
func AnalyticalTables() []string {
	return append([]string(nil), insertOrder...)
}

// Catalog renders every statement the pipeline runs for one warehouse dialect.
type Catalog struct {
	dialect Dialect
	schema  string
}

// New returns a Catalog; a non-empty schema qualifies every table name.
func New(dialect Dialect, schema string) *Catalog {
	return &Catalog{dialect: dialect, schema: schema}
}

// NewForConnectionType looks up the dialect for connectionType.
func NewForConnectionType(connectionType string, schema string) (*Catalog, error) {
	d, err := GetDialect(connectionType)
	if err != nil {
		return nil, err
	}
	return New(d, schema), nil
}

func (cat *Catalog) Dialect() Dialect {
	return cat.dialect
}

// TableName returns table qualified by the catalog schema, if any.
func (cat *Catalog) TableName(table string) rdbms.SchemaTable {
	return rdbms.NewSchemaTable(cat.schema, table)
}

func (cat *Catalog) name(table string) string {
	return cat.TableName(table).String()
}

// DropStatements returns existence-guarded drops: staging tables, then the fact table, then dimensions.
func (cat *Catalog) DropStatements() []Statement {
	retval := make([]Statement, 0, len(dropOrder))
	for _, t := range dropOrder {
		retval = append(retval, Statement{
			Phase: PhaseDrop,
			Table: t,
			SQL:   fmt.Sprintf("DROP TABLE IF EXISTS %v;", cat.name(t)),
		})
	}
	return retval
}

// CreateStatements returns existence-guarded creates: staging tables, then dimensions, then the fact table.
func (cat *Catalog) CreateStatements() ([]Statement, error) {
	m := cat.dialect.Mapper()
	all := tabledefinition.All()
	retval := make([]Statement, 0, len(all))
	for _, t := range all {
		cols, err := tabledefinition.TableDDL(m, t)
		if err != nil {
			return nil, err
		}
		retval = append(retval, Statement{
			Phase: PhaseCreate,
			Table: t.Name,
			SQL:   fmt.Sprintf("CREATE TABLE IF NOT EXISTS %v (\n%v\n);", cat.name(t.Name), cols),
		})
	}
	return retval, nil
}

// CopyStatements returns the two staging loads, staging_events first.
// Parameter values are quoted as SQL literals and nothing is rendered if a value is missing.
func (cat *Catalog) CopyStatements(p CopyParams) ([]Statement, error) {
	if !cat.dialect.ServerSideCopy() {
		return nil, ErrNoServerSideCopy
	}
	specs := CopySpecs(p)
	retval := make([]Statement, 0, len(specs))
	for _, spec := range specs {
		s, err := cat.dialect.Copy(cat.name(spec.Table.Name), spec, p)
		if err != nil {
			return nil, err
		}
		retval = append(retval, Statement{Phase: PhaseCopy, Table: spec.Table.Name, SQL: s})
	}
	return retval, nil
}

// InsertStatements returns the insert-selects in order songplays, users, songs, artists, time.
func (cat *Catalog) InsertStatements() []Statement {
	d := cat.dialect
	events := cat.name(c.TableStagingEvents)
	songs := cat.name(c.TableStagingSongs)
	startTime := d.EpochMillisToTimestamp("e.ts")
	retval := make([]Statement, 0, len(insertOrder))
	add := func(table string, sql string) {
		retval = append(retval, Statement{Phase: PhaseInsert, Table: table, SQL: sql})
	}
	add(c.TableSongplays, fmt.Sprintf(`INSERT INTO %v (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
SELECT %v AS start_time,
	e.userId AS user_id,
	e.level,
	s.song_id,
	s.artist_id,
	e.sessionId AS session_id,
	e.location,
	e.userAgent AS user_agent
FROM %v e
JOIN %v s ON e.song = s.title AND e.artist = s.artist_name AND e.length = s.duration
WHERE e.page = '%v';`, cat.name(c.TableSongplays), startTime, events, songs, c.PageNextSong))
	add(c.TableUsers, fmt.Sprintf(`INSERT INTO %v (user_id, first_name, last_name, gender, level)
SELECT DISTINCT e.userId AS user_id,
	e.firstName AS first_name,
	e.lastName AS last_name,
	e.gender,
	e.level
FROM %v e
WHERE e.page = '%v' AND e.userId IS NOT NULL%v;`, cat.name(c.TableUsers), events, c.PageNextSong, cat.onConflict("user_id")))
	add(c.TableSongs, fmt.Sprintf(`INSERT INTO %v (song_id, title, artist_id, year, duration)
SELECT DISTINCT s.song_id,
	s.title,
	s.artist_id,
	s.year,
	s.duration
FROM %v s%v%v;`, cat.name(c.TableSongs), songs, cat.notNull("s.song_id"), cat.onConflict("song_id")))
	add(c.TableArtists, fmt.Sprintf(`INSERT INTO %v (artist_id, name, location, latitude, longitude)
SELECT DISTINCT s.artist_id,
	s.artist_name AS name,
	s.artist_location AS location,
	s.artist_latitude AS latitude,
	s.artist_longitude AS longitude
FROM %v s%v%v;`, cat.name(c.TableArtists), songs, cat.notNull("s.artist_id"), cat.onConflict("artist_id")))
	parts := []DatePart{PartHour, PartDay, PartWeek, PartMonth, PartYear, PartWeekday}
	extracts := make([]string, len(parts))
	for i, p := range parts {
		extracts[i] = d.Extract(p, "t.start_time") + " AS " + string(p)
	}
	add(c.TableTime, fmt.Sprintf(`INSERT INTO %v (start_time, hour, day, week, month, year, weekday)
SELECT DISTINCT t.start_time,
	%v
FROM (
	SELECT %v AS start_time
	FROM %v e
	WHERE e.page = '%v'
) t%v%v;`, cat.name(c.TableTime), strings.Join(extracts, ",\n\t"), startTime, events, c.PageNextSong, cat.notNull("t.start_time"), cat.onConflict("start_time")))
	return retval
}

// notNull filters rows that would violate an enforced primary key.
func (cat *Catalog) notNull(col string) string {
	if !cat.dialect.EnforcesPrimaryKeys() {
		return ""
	}
	return "\nWHERE " + col + " IS NOT NULL"
}

// onConflict keeps the first row per key where primary keys are enforced, matching the
// duplicate tolerant behaviour of warehouses with informational keys.
func (cat *Catalog) onConflict(key string) string {
	if !cat.dialect.EnforcesPrimaryKeys() {
		return ""
	}
	return " ON CONFLICT (" + key + ") DO NOTHING"
}

// TruncateStatements empties the analytical tables ahead of re-running the inserts.
func (cat *Catalog) TruncateStatements(inTransaction bool) []Statement {
	retval := make([]Statement, 0, len(insertOrder))
	for _, t := range insertOrder {
		retval = append(retval, Statement{
			Phase: PhaseTruncate,
			Table: t,
			SQL:   cat.dialect.Truncate(cat.name(t), inTransaction),
		})
	}
	return retval
}

// CountStatements returns a row count query per table.
func (cat *Catalog) CountStatements(tables ...string) []Statement {
	retval := make([]Statement, 0, len(tables))
	for _, t := range tables {
		retval = append(retval, Statement{
			Phase: PhaseCount,
			Table: t,
			SQL:   fmt.Sprintf("SELECT COUNT(*) FROM %v;", cat.name(t)),
		})
	}
	return retval
}

// SampleStatements select up to limit rows from each table.
func (cat *Catalog) SampleStatements(limit int, tables ...string) []Statement {
	retval := make([]Statement, 0, len(tables))
	for _, t := range tables {
		retval = append(retval, Statement{
			Phase: PhaseSample,
			Table: t,
			SQL:   fmt.Sprintf("SELECT * FROM %v LIMIT %d;", cat.name(t), limit),
		})
	}
	return retval
}
