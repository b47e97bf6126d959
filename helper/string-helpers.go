package helper

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sonofy/dwhpipe/constants"
)

// Convert a string of the form, 'f1,f2,f3...' into a slice of string values.
// 1) Split on comma.
// 2) Remove leading and trailing spaces.
// Empty tokens are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	tokens := strings.Split(s, ",")
	retval := make([]string, 0, len(tokens))
	for x := range tokens {
		t := strings.TrimSpace(tokens[x])
		if t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// GetStringFromInterface will convert interface{} value to a string.
// Floats keep all decimal places and never use an exponent.
func GetStringFromInterface(input interface{}) (retval string, err error) {
	switch v := input.(type) {
	case int, int16, int32, int64, int8, uint8:
		retval = fmt.Sprintf("%d", v)
	case string:
		retval = v
	case json.Number:
		retval = v.String()
	case float32:
		retval = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		retval = strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		retval = v.UTC().Format(constants.TimeFormatRunStarted)
	case []uint8:
		retval = string(v)
	case bool:
		retval = fmt.Sprintf("%v", v)
	case nil:
		retval = ""
	default:
		err = fmt.Errorf("unhandled type while fetching string from interface: type = %v; value = %v", reflect.TypeOf(input), input)
	}
	return
}

// GetTrueFalseStringAsBool trims spaces from s and checks if it can regexp (case insensitive) match "true".
// It returns true if there's a match else false.
func GetTrueFalseStringAsBool(s string) bool {
	re := regexp.MustCompile("(?i)^(true|yes|1)$")
	return re.MatchString(strings.TrimSpace(s))
}

// QuoteLiteral wraps s in single quotes for use as a SQL string literal, doubling any embedded quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var reSqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// IsSqlIdentifier returns true if s can be used unquoted as a SQL object name.
func IsSqlIdentifier(s string) bool {
	return reSqlIdentifier.MatchString(s)
}

// TruncateBytes shortens s to at most n bytes without splitting a multi-byte character.
func TruncateBytes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// IsBlank returns true if s is empty or only white space.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// InterfaceToString converts a row of database values into strings for printing.
func InterfaceToString(src []interface{}) []string {
	retval := make([]string, len(src))
	for i, v := range src {
		switch x := v.(type) {
		case float64:
			xInt := int64(x)
			if x == float64(xInt) { // if we can treat this as an integer...
				retval[i] = fmt.Sprint(xInt)
			} else {
				retval[i] = strconv.FormatFloat(x, 'g', -1, 64)
			}
		case []uint8:
			retval[i] = string(x)
		case nil:
			retval[i] = ""
		default:
			retval[i] = fmt.Sprint(v)
		}
	}
	return retval
}
