package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sonofy/dwhpipe/constants"
	tabledefinition "github.com/sonofy/dwhpipe/table-definition"
)

const autoFormat = constants.CopyFormatAuto

var (
	ErrNoServerSideCopy     = errors.New("warehouse cannot bulk copy from object storage")
	ErrMissingCopyParameter = errors.New("missing copy parameter")
	ErrInvalidIdentifier    = errors.New("invalid identifier")
)

// CopyParams are the values substituted into bulk load statements.
type CopyParams struct {
	LogData            string
	LogJsonPath        string
	SongData           string
	RoleArn            string
	Region             string
	StorageIntegration string
}

// CopySpec describes how one staging table is loaded, independently of the warehouse.
// Format is "auto" or the location of a JSONPaths descriptor.
type CopySpec struct {
	Table           tabledefinition.Table
	Source          string
	SourceKey       string
	Format          string
	FormatKey       string
	TruncateColumns bool
	BlanksAsNull    bool
	EmptyAsNull     bool
}

// UsesJsonPaths is true when columns are filled positionally from a JSONPaths descriptor.
func (s CopySpec) UsesJsonPaths() bool {
	return !strings.EqualFold(s.Format, autoFormat)
}

// require returns ErrMissingCopyParameter naming every empty value in the copy source and
// the name/value pairs in kv.
func (p CopyParams) require(spec CopySpec, kv ...string) error {
	missing := make([]string, 0)
	if strings.TrimSpace(spec.Source) == "" {
		missing = append(missing, spec.SourceKey)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if strings.TrimSpace(kv[i+1]) == "" {
			missing = append(missing, kv[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w for %v: %v", ErrMissingCopyParameter, spec.Table.Name, strings.Join(missing, ", "))
	}
	return nil
}

// CopySpecs returns the staging loads in execution order: events then songs.
func CopySpecs(p CopyParams) []CopySpec {
	return []CopySpec{
		{
			Table:     tabledefinition.StagingEvents,
			Source:    p.LogData,
			SourceKey: "S3.LOG_DATA",
			Format:    p.LogJsonPath,
			FormatKey: "S3.LOG_JSONPATH",
		},
		{
			Table:           tabledefinition.StagingSongs,
			Source:          p.SongData,
			SourceKey:       "S3.SONG_DATA",
			Format:          autoFormat,
			TruncateColumns: true,
			BlanksAsNull:    true,
			EmptyAsNull:     true,
		},
	}
}

// Validate checks the CopySpec names a source and, where one is needed, a format.
func (s CopySpec) Validate() error {
	kv := make([]string, 0, 2)
	if s.FormatKey != "" {
		kv = append(kv, s.FormatKey, s.Format)
	}
	return CopyParams{}.require(s, kv...)
}
