package atomupd

// RawManifest is the as-parsed contents of a "*.manifest.json" file, before
// the Catalog Builder has validated it against server policy. Fields keep
// their wire types (plain strings/ints) so that a malformed value can be
// reported as an ingestion error rather than failing JSON decode outright
// for fields the policy doesn't even require.
type RawManifest struct {
	Product     string `json:"product"`
	Release     string `json:"release"`
	Variant     string `json:"variant"`
	Branch      string `json:"branch,omitempty"`
	Arch        string `json:"arch"`
	Version     string `json:"version"`
	BuildID     string `json:"buildid"`
	Checkpoint
	Skip          bool  `json:"skip,omitempty"`
	EstSize       int64 `json:"estimated_size,omitempty"`
	DefaultBranch string `json:"default_update_branch,omitempty"`
}

// Checkpoint carries the checkpoint-protocol fields shared by RawManifest
// and Manifest. Embedded rather than duplicated so the two stay in sync.
type Checkpoint struct {
	Introduces int  `json:"introduces_checkpoint,omitempty"`
	Requires   int  `json:"requires_checkpoint,omitempty"`
	Shadow     bool `json:"shadow_checkpoint,omitempty"`
}

// IsCheckpoint reports whether this image introduces a checkpoint.
func (c Checkpoint) IsCheckpoint() bool { return c.Introduces > 0 }

// Manifest is a RawManifest that has passed every Catalog Builder
// validation rule (SPEC_FULL.md §4.2): its six mandatory fields are
// non-empty, its allow-listed fields are in policy, and its Version and
// BuildID parse.
type Manifest struct {
	Product string
	Release string
	Variant string
	Branch  string // "" means legacy/no branch
	Arch    string

	Version Version
	BuildID BuildID

	Checkpoint

	Skip          bool
	EstimatedSize int64
	DefaultBranch string
}

// TrackKey identifies the track a Manifest belongs to.
type TrackKey struct {
	Product, Release, Arch, Variant, Branch string
}

// Key returns the TrackKey this Manifest belongs to.
func (m Manifest) Key() TrackKey {
	return TrackKey{
		Product: m.Product,
		Release: m.Release,
		Arch:    m.Arch,
		Variant: m.Variant,
		Branch:  m.Branch,
	}
}

// wireManifest is the subset of Manifest fields that appear, verbatim, in a
// candidate's "image" object in a query response (SPEC_FULL.md §6.3).
type wireManifest struct {
	Product string `json:"product"`
	Release string `json:"release"`
	Variant string `json:"variant"`
	Branch  string `json:"branch,omitempty"`
	Arch    string `json:"arch"`
	Version string `json:"version"`
	BuildID string `json:"buildid"`
}

func (m Manifest) toWire() wireManifest {
	return wireManifest{
		Product: m.Product,
		Release: m.Release,
		Variant: m.Variant,
		Branch:  m.Branch,
		Arch:    m.Arch,
		Version: m.Version.String(),
		BuildID: m.BuildID.String(),
	}
}
