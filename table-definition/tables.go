package tabledefinition

import (
	"fmt"

	c "github.com/sonofy/dwhpipe/constants"
)

// StagingEvents holds raw clickstream records. Column names follow the JSON event fields.
var StagingEvents = Table{
	Name: c.TableStagingEvents,
	Columns: []Column{
		{Name: "artist", DataType: Varchar},
		{Name: "auth", DataType: Varchar},
		{Name: "firstName", DataType: Varchar},
		{Name: "gender", DataType: Char, Length: 1},
		{Name: "itemInSession", DataType: Int},
		{Name: "lastName", DataType: Varchar},
		{Name: "length", DataType: Float},
		{Name: "level", DataType: Varchar},
		{Name: "location", DataType: Varchar},
		{Name: "method", DataType: Varchar},
		{Name: "page", DataType: Varchar},
		{Name: "registration", DataType: BigInt},
		{Name: "sessionId", DataType: Int},
		{Name: "song", DataType: Varchar},
		{Name: "status", DataType: Int},
		{Name: "ts", DataType: BigInt},
		{Name: "userAgent", DataType: Varchar},
		{Name: "userId", DataType: Int},
	},
}

// StagingSongs holds raw song metadata records.
var StagingSongs = Table{
	Name: c.TableStagingSongs,
	Columns: []Column{
		{Name: "num_songs", DataType: Int},
		{Name: "artist_id", DataType: Varchar},
		{Name: "artist_latitude", DataType: Float},
		{Name: "artist_longitude", DataType: Float},
		{Name: "artist_location", DataType: Varchar},
		{Name: "artist_name", DataType: Varchar},
		{Name: "song_id", DataType: Varchar},
		{Name: "title", DataType: Varchar},
		{Name: "duration", DataType: Float},
		{Name: "year", DataType: Int},
	},
}

var Users = Table{
	Name: c.TableUsers,
	Columns: []Column{
		{Name: "user_id", DataType: Int, PrimaryKey: true},
		{Name: "first_name", DataType: Varchar},
		{Name: "last_name", DataType: Varchar},
		{Name: "gender", DataType: Char, Length: 1},
		{Name: "level", DataType: Varchar},
	},
}

var Songs = Table{
	Name: c.TableSongs,
	Columns: []Column{
		{Name: "song_id", DataType: Varchar, PrimaryKey: true},
		{Name: "title", DataType: Varchar},
		{Name: "artist_id", DataType: Varchar},
		{Name: "year", DataType: Int},
		{Name: "duration", DataType: Float},
	},
}

var Artists = Table{
	Name: c.TableArtists,
	Columns: []Column{
		{Name: "artist_id", DataType: Varchar, PrimaryKey: true},
		{Name: "name", DataType: Varchar},
		{Name: "location", DataType: Varchar},
		{Name: "latitude", DataType: Float},
		{Name: "longitude", DataType: Float},
	},
}

var Time = Table{
	Name: c.TableTime,
	Columns: []Column{
		{Name: "start_time", DataType: Timestamp, PrimaryKey: true},
		{Name: "hour", DataType: Int},
		{Name: "day", DataType: Int},
		{Name: "week", DataType: Int},
		{Name: "month", DataType: Int},
		{Name: "year", DataType: Int},
		{Name: "weekday", DataType: Int},
	},
}

// Songplays is the fact table; songplay_id is generated by the warehouse.
var Songplays = Table{
	Name: c.TableSongplays,
	Columns: []Column{
		{Name: "songplay_id", DataType: Int, PrimaryKey: true, Identity: true},
		{Name: "start_time", DataType: Timestamp, NotNull: true},
		{Name: "user_id", DataType: Int, NotNull: true},
		{Name: "level", DataType: Varchar},
		{Name: "song_id", DataType: Varchar},
		{Name: "artist_id", DataType: Varchar},
		{Name: "session_id", DataType: Int},
		{Name: "location", DataType: Varchar},
		{Name: "user_agent", DataType: Varchar},
	},
}

// All returns every table: staging first, then dimensions, then the fact table.
func All() []Table {
	return []Table{StagingEvents, StagingSongs, Users, Songs, Artists, Time, Songplays}
}

// Get returns the table called name.
func Get(name string) (Table, error) {
	for _, t := range All() {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("unknown table %q", name)
}
