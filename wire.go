package atomupd

// QueryResponse is the wire shape the Selector produces and the Static
// Exporter writes to disk (SPEC_FULL.md §6.3). Both Minor and Major are
// omitted from the JSON encoding when nil, so "no update" serializes as
// the empty object "{}".
type QueryResponse struct {
	Minor *ReleaseCandidates `json:"minor,omitempty"`
	Major *ReleaseCandidates `json:"major,omitempty"`
}

// Empty reports whether this response carries no candidates at all.
func (r QueryResponse) Empty() bool { return r.Minor == nil && r.Major == nil }

// ReleaseCandidates is the hop list computed for one release (the client's
// own, for Minor; the next release, for Major).
type ReleaseCandidates struct {
	Release    string      `json:"release"`
	Candidates []Candidate `json:"candidates"`
}

// Candidate is a single hop in the Selector's answer.
type Candidate struct {
	Image             wireManifest `json:"image"`
	UpdatePath        string       `json:"update_path"`
	EstimatedSize     int64        `json:"estimated_size"`
	RequiresCheckpoint int         `json:"requires_checkpoint,omitempty"`
	IntroducesCheckpoint int       `json:"introduces_checkpoint,omitempty"`
	ShadowCheckpoint  bool         `json:"shadow_checkpoint,omitempty"`
}

// NewCandidate builds the wire Candidate for an Image.
func NewCandidate(img Image) Candidate {
	return Candidate{
		Image:                img.toWire(),
		UpdatePath:           img.UpdatePath,
		EstimatedSize:        img.EstimatedSize,
		RequiresCheckpoint:   img.Requires,
		IntroducesCheckpoint: img.Introduces,
		ShadowCheckpoint:     img.Shadow,
	}
}
