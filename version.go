package atomupd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver"
)

// VersionKind tags which of the two versioning schemes a Version carries.
type VersionKind string

const (
	// KindSnapshot marks a Version whose "version" field is the literal
	// token "snapshot"; such images compare by buildid alone.
	KindSnapshot VersionKind = "snapshot"
	// KindSemantic marks a Version parsed as MAJOR.MINOR.PATCH[-pre].
	KindSemantic VersionKind = "semantic"
)

// SnapshotToken is the literal "version" value that selects KindSnapshot.
const SnapshotToken = "snapshot"

// Version is the tagged union described in SPEC_FULL.md §9: either the
// literal snapshot token, or a semantic version. It replaces the dynamic,
// duck-typed parsing the original service used to decide which comparison
// rule applied to a given manifest.
type Version struct {
	Kind VersionKind
	Sem  *semver.Version // non-nil iff Kind == KindSemantic
	raw  string
}

// ParseVersion parses the "version" manifest field.
func ParseVersion(s string) (Version, error) {
	if s == SnapshotToken {
		return Version{Kind: KindSnapshot, raw: s}, nil
	}
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, &Error{
			Op: "atomupd.ParseVersion", Kind: ErrInvalid,
			Message: fmt.Sprintf("%q is neither %q nor a valid semantic version", s, SnapshotToken),
			Inner:   err,
		}
	}
	return Version{Kind: KindSemantic, Sem: sv, raw: s}, nil
}

// String returns the original manifest representation.
func (v Version) String() string { return v.raw }

// MarshalText implements [encoding.TextMarshaler].
func (v Version) MarshalText() ([]byte, error) { return []byte(v.raw), nil }

// UnmarshalText implements [encoding.TextUnmarshaler].
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// compareSemantic compares two KindSemantic versions using standard
// semantic-version precedence (pre-release lower than release).
func compareSemantic(a, b Version) int {
	return a.Sem.Compare(b.Sem)
}

// BuildID is the "YYYYMMDD[.N]" identifier carried by every image.
type BuildID struct {
	Year, Month, Day int
	Increment        int
	raw              string
}

// ParseBuildID parses a manifest's "buildid" field.
func ParseBuildID(s string) (BuildID, error) {
	datePart, incPart, hasInc := strings.Cut(s, ".")
	if len(datePart) != 8 {
		return BuildID{}, invalidBuildID(s, nil)
	}
	y, err := strconv.Atoi(datePart[0:4])
	if err != nil {
		return BuildID{}, invalidBuildID(s, err)
	}
	m, err := strconv.Atoi(datePart[4:6])
	if err != nil {
		return BuildID{}, invalidBuildID(s, err)
	}
	d, err := strconv.Atoi(datePart[6:8])
	if err != nil {
		return BuildID{}, invalidBuildID(s, err)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return BuildID{}, invalidBuildID(s, nil)
	}
	inc := 0
	if hasInc {
		inc, err = strconv.Atoi(incPart)
		if err != nil || inc < 0 {
			return BuildID{}, invalidBuildID(s, err)
		}
	}
	return BuildID{Year: y, Month: m, Day: d, Increment: inc, raw: s}, nil
}

func invalidBuildID(s string, cause error) error {
	return &Error{
		Op: "atomupd.ParseBuildID", Kind: ErrInvalid,
		Message: fmt.Sprintf("%q is not a valid YYYYMMDD[.N] buildid", s),
		Inner:   cause,
	}
}

// String returns the original manifest representation.
func (b BuildID) String() string { return b.raw }

// MarshalText implements [encoding.TextMarshaler].
func (b BuildID) MarshalText() ([]byte, error) { return []byte(b.raw), nil }

// UnmarshalText implements [encoding.TextUnmarshaler].
func (b *BuildID) UnmarshalText(t []byte) error {
	parsed, err := ParseBuildID(string(t))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// date returns the build's calendar date as a comparable integer, YYYYMMDD.
func (b BuildID) date() int { return b.Year*10000 + b.Month*100 + b.Day }

// Compare orders two BuildIDs first by calendar date, then by increment.
func (b BuildID) Compare(o BuildID) int {
	if bd, od := b.date(), o.date(); bd != od {
		if bd < od {
			return -1
		}
		return 1
	}
	switch {
	case b.Increment < o.Increment:
		return -1
	case b.Increment > o.Increment:
		return 1
	default:
		return 0
	}
}
