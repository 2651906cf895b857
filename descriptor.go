package atomupd

// ClientDescriptor is the input to the Selector: the tuple a client
// reports about itself, plus the branch it wishes to track.
type ClientDescriptor struct {
	Product string
	Release string
	Arch    string
	Variant string
	Branch  string

	Version string
	BuildID string

	// CheckpointLevel, if non-nil, is the client-reported checkpoint level
	// to use for a fallback lookup when Version/BuildID don't resolve to
	// a known Image (SPEC_FULL.md §4.4, checkpoint fallback files). It is
	// never inferred by the Selector — only ever supplied by the caller.
	CheckpointLevel *int
}

// TrackKey returns the TrackKey this descriptor resolves against.
func (d ClientDescriptor) TrackKey() TrackKey {
	return TrackKey{
		Product: d.Product,
		Release: d.Release,
		Arch:    d.Arch,
		Variant: d.Variant,
		Branch:  d.Branch,
	}
}
