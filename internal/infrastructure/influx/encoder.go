package influx

import (
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/jenkins-collector/internal/domain/entity"
	"github.com/dreschagin/jenkins-collector/internal/domain/valueobject"
)

// buildTimeLayout is the ISO-8601-like wall-clock format stored in the
// build_time string field.
const buildTimeLayout = "2006-01-02T15:04:05.000000Z"

// Encoder serializes a BuildRecord into one InfluxDB line-protocol line.
// The active profile controls which optional tags and fields are appended;
// the identity tags and numeric build fields are always present.
type Encoder struct {
	Measurement string
	Profile     valueobject.Profile
}

// NewEncoder creates a line-protocol encoder for the given measurement.
func NewEncoder(measurement string, profile valueobject.Profile) Encoder {
	return Encoder{Measurement: measurement, Profile: profile}
}

// Encode produces a single line:
//
//	measurement,tag=value,... field=value,... timestampNs
//
// Integer fields carry the "i" suffix, string fields are double-quoted,
// and the timestamp is the build start in nanoseconds (ms * 1_000_000).
func (e Encoder) Encode(record entity.BuildRecord) string {
	build := record.Build
	trigger := build.Trigger

	var line strings.Builder

	line.WriteString(e.Measurement)
	writeTag(&line, "project_name", record.ProjectName)
	writeTag(&line, "project_path", record.ProjectPath)
	writeTag(&line, "view", record.View)

	switch e.Profile {
	case valueobject.ProfileUserDetail:
		writeTag(&line, "trigger_type", trigger.Category.String())
		writeTag(&line, "triggered_by_user", trigger.Actor)
	case valueobject.ProfileMultiInstance:
		writeTag(&line, "server", record.Server)
	}

	line.WriteByte(' ')

	buildTime := time.UnixMilli(build.Timestamp).UTC().Format(buildTimeLayout)

	line.WriteString("build_number=")
	line.WriteString(strconv.Itoa(build.Number))
	line.WriteString("i,build_duration=")
	line.WriteString(strconv.FormatInt(build.Duration, 10))
	line.WriteString("i")
	writeStringField(&line, "build_result", build.Result.String())
	writeStringField(&line, "build_time", buildTime)

	switch e.Profile {
	case valueobject.ProfileUserDetail:
		writeStringField(&line, "user_display_name", trigger.DisplayName)
		writeStringField(&line, "trigger_description", trigger.Description)
	case valueobject.ProfileMultiInstance:
		writeStringField(&line, "user_name", trigger.DisplayName)
	}

	line.WriteByte(' ')
	line.WriteString(strconv.FormatInt(build.Timestamp*1_000_000, 10))

	return line.String()
}

func writeTag(line *strings.Builder, key, value string) {
	line.WriteByte(',')
	line.WriteString(key)
	line.WriteByte('=')
	line.WriteString(EscapeValue(value))
}

func writeStringField(line *strings.Builder, key, value string) {
	line.WriteByte(',')
	line.WriteString(key)
	line.WriteString(`="`)
	line.WriteString(EscapeValue(value))
	line.WriteByte('"')
}

// EscapeValue backslash-escapes the characters that break line-protocol
// parsing inside tag values and quoted string fields: space, comma,
// equals sign and double quote.
func EscapeValue(value string) string {
	var escaped strings.Builder
	escaped.Grow(len(value))

	for _, r := range value {
		switch r {
		case ' ', ',', '=', '"':
			escaped.WriteByte('\\')
		}
		escaped.WriteRune(r)
	}

	return escaped.String()
}

// UnescapeValue inverts EscapeValue: every backslash-escaped character
// becomes the literal character again.
func UnescapeValue(value string) string {
	var unescaped strings.Builder
	unescaped.Grow(len(value))

	escaped := false
	for _, r := range value {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		unescaped.WriteRune(r)
	}

	return unescaped.String()
}
