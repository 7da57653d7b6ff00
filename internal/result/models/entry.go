package models

type EntryType string

const (
	// EntryTypeFinalResults enters the final counts directly.
	EntryTypeFinalResults EntryType = "final_results"
	// EntryTypeDetailed captures ballots in bundles.
	EntryTypeDetailed EntryType = "detailed"
)

// EntryDefinition is how a counting circle captures its result.
type EntryDefinition struct {
	Type                       EntryType `json:"type" validate:"required,oneof=final_results detailed"`
	BallotBundleSize           int       `json:"ballot_bundle_size,omitempty" validate:"gte=0"`
	AutomaticEmptyVoteCounting bool      `json:"automatic_empty_vote_counting"`
}

func (d EntryDefinition) IsDetailed() bool {
	return d.Type == EntryTypeDetailed
}
