package types

// Trap is the parsed, immutable representation of one logical trap
// record after TrapParser has run.
type Trap struct {
	Version       string // "v1" or "v2"
	ReceivedAt    string // "YYYY-MM-DD HH:MM:SS" as written by the daemon
	UnixTime      int64
	Source        string
	OID           string
	GenericType   int
	Value         string // v1 only; empty for v2
	TypeDesc      string // v1 only; empty for v2
	CustomPayload string
	RawTail       string // the portion matched against filters
}

// Row is the relational representation inserted by the Persister.
type Row struct {
	ID           int64
	Timestamp    string
	Source       string
	OID          string
	GenericType  int
	Value        string
	CustomOID    string
	CustomValue  string
	CustomType   string
	UnixTime     int64
}
