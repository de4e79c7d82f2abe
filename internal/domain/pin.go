package domain

// PinKind is the type of pinned content.
type PinKind string

const (
	PinKindImage    PinKind = "image"
	PinKindMetadata PinKind = "metadata"
)

// Pin is an object pinned to IPFS on behalf of a launch.
// Corresponds to pins table in PostgreSQL.
type Pin struct {
	CID       string  // PK, content identifier
	Kind      PinKind // image or metadata
	Name      string  // file or token name
	URL       string  // gateway URL
	LaunchID  string  // FK to launches, empty while orphaned
	CreatedAt int64   // pin timestamp (ms)
}

// Orphaned reports whether no transaction was ever built around the pin.
func (p *Pin) Orphaned() bool {
	return p.LaunchID == ""
}
