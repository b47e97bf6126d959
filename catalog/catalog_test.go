package catalog_test

import (
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sonofy/dwhpipe/catalog"
	"github.com/sonofy/dwhpipe/constants"
)

func tables(stmts []catalog.Statement) []string {
	retval := make([]string, len(stmts))
	for i, s := range stmts {
		retval[i] = s.Table
	}
	return retval
}

func mustCatalog(connectionType string, schema string) *catalog.Catalog {
	cat, err := catalog.NewForConnectionType(connectionType, schema)
	Expect(err).NotTo(HaveOccurred())
	return cat
}

var _ = Describe("Catalog", func() {
	var cat *catalog.Catalog

	BeforeEach(func() {
		cat = mustCatalog(constants.ConnectionTypeRedshift, "")
	})

	Describe("DropStatements", func() {
		It("drops staging tables, then the fact table, then dimensions", func() {
			Expect(tables(cat.DropStatements())).To(Equal([]string{
				"staging_events", "staging_songs", "songplays", "users", "songs", "artists", "time",
			}))
		})

		It("guards every drop with IF EXISTS", func() {
			for _, s := range cat.DropStatements() {
				Expect(s.SQL).To(Equal("DROP TABLE IF EXISTS " + s.Table + ";"))
				Expect(s.Phase).To(Equal(catalog.PhaseDrop))
			}
		})
	})

	Describe("CreateStatements", func() {
		It("creates staging tables, then dimensions, then the fact table", func() {
			stmts, err := cat.CreateStatements()
			Expect(err).NotTo(HaveOccurred())
			Expect(tables(stmts)).To(Equal([]string{
				"staging_events", "staging_songs", "users", "songs", "artists", "time", "songplays",
			}))
			for _, s := range stmts {
				Expect(s.SQL).To(HavePrefix("CREATE TABLE IF NOT EXISTS " + s.Table + " ("))
			}
		})

		It("renders the redshift songplays key", func() {
			stmts, _ := cat.CreateStatements()
			Expect(stmts[6].SQL).To(ContainSubstring("songplay_id INT IDENTITY(1,1) PRIMARY KEY"))
			Expect(stmts[6].SQL).To(ContainSubstring("start_time TIMESTAMP NOT NULL"))
			Expect(stmts[6].SQL).To(ContainSubstring("user_id INT NOT NULL"))
		})

		It("gives postgres explicit varchar widths", func() {
			stmts, err := mustCatalog(constants.ConnectionTypePostgres, "").CreateStatements()
			Expect(err).NotTo(HaveOccurred())
			Expect(stmts[0].SQL).To(ContainSubstring("artist VARCHAR(256)"))
			Expect(stmts[6].SQL).To(ContainSubstring("GENERATED BY DEFAULT AS IDENTITY"))
		})
	})

	Describe("InsertStatements", func() {
		stmts := cat.InsertStatements()

		It("inserts the fact table first and time last", func() {
			Expect(tables(stmts)).To(Equal([]string{"songplays", "users", "songs", "artists", "time"}))
		})

		It("joins events to songs on title, artist and duration for NextSong events", func() {
			Expect(stmts[0].SQL).To(ContainSubstring("JOIN staging_songs s ON e.song = s.title AND e.artist = s.artist_name AND e.length = s.duration"))
			Expect(stmts[0].SQL).To(ContainSubstring("WHERE e.page = 'NextSong'"))
			Expect(stmts[0].SQL).To(ContainSubstring("TIMESTAMP 'epoch' + (e.ts / 1000) * INTERVAL '1 second' AS start_time"))
		})

		It("filters users to NextSong events with a user id", func() {
			Expect(stmts[1].SQL).To(ContainSubstring("SELECT DISTINCT e.userId AS user_id"))
			Expect(stmts[1].SQL).To(ContainSubstring("WHERE e.page = 'NextSong' AND e.userId IS NOT NULL;"))
		})

		It("deduplicates songs and artists", func() {
			Expect(stmts[2].SQL).To(ContainSubstring("SELECT DISTINCT s.song_id"))
			Expect(stmts[3].SQL).To(ContainSubstring("SELECT DISTINCT s.artist_id"))
			Expect(stmts[3].SQL).To(HaveSuffix("FROM staging_songs s;"))
		})

		It("derives start_time in a subquery restricted to NextSong events", func() {
			Expect(stmts[4].SQL).To(ContainSubstring("EXTRACT(weekday FROM t.start_time) AS weekday"))
			Expect(stmts[4].SQL).To(ContainSubstring("WHERE e.page = 'NextSong'\n) t;"))
		})

		It("guards postgres dimension keys", func() {
			pg := mustCatalog(constants.ConnectionTypePostgres, "").InsertStatements()
			Expect(pg[0].SQL).NotTo(ContainSubstring("ON CONFLICT"))
			Expect(pg[1].SQL).To(HaveSuffix("ON CONFLICT (user_id) DO NOTHING;"))
			Expect(pg[3].SQL).To(ContainSubstring("WHERE s.artist_id IS NOT NULL ON CONFLICT (artist_id) DO NOTHING;"))
			Expect(pg[4].SQL).To(ContainSubstring("EXTRACT(dow FROM t.start_time) AS weekday"))
		})

		It("uses snowflake date functions", func() {
			sf := mustCatalog(constants.ConnectionTypeSnowflake, "").InsertStatements()
			Expect(sf[0].SQL).To(ContainSubstring("TO_TIMESTAMP_NTZ(FLOOR(e.ts / 1000)) AS start_time"))
			Expect(sf[4].SQL).To(ContainSubstring("EXTRACT(weekiso FROM t.start_time) AS week"))
			Expect(sf[4].SQL).To(ContainSubstring("EXTRACT(dayofweek FROM t.start_time) AS weekday"))
		})
	})

	Describe("TruncateStatements", func() {
		It("uses DELETE on redshift inside a transaction", func() {
			for _, s := range cat.TruncateStatements(true) {
				Expect(s.SQL).To(HavePrefix("DELETE FROM "))
			}
			Expect(tables(cat.TruncateStatements(false))).To(Equal(catalog.AnalyticalTables()))
			Expect(cat.TruncateStatements(false)[0].SQL).To(Equal("TRUNCATE songplays;"))
		})
	})

	Describe("schema qualification", func() {
		It("prefixes every table", func() {
			sc := mustCatalog(constants.ConnectionTypeRedshift, "sparkify")
			for _, s := range sc.DropStatements() {
				Expect(s.SQL).To(ContainSubstring("sparkify." + s.Table))
			}
			ins := sc.InsertStatements()
			Expect(ins[0].SQL).To(ContainSubstring("FROM sparkify.staging_events e"))
			Expect(sc.CountStatements("time")[0].SQL).To(Equal("SELECT COUNT(*) FROM sparkify.time;"))
			Expect(sc.SampleStatements(5, "users")[0].SQL).To(Equal("SELECT * FROM sparkify.users LIMIT 5;"))
		})
	})

	It("rejects unknown warehouse types", func() {
		_, err := catalog.NewForConnectionType("oracle", "")
		Expect(err).To(HaveOccurred())
		Expect(strings.ToLower(err.Error())).To(ContainSubstring("unsupported"))
	})
})
