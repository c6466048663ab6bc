package model

import "time"

// HashKind represents the algorithm family of a collected hash.
// The kind is inferred purely from string length because the upstream
// platform returns bare hex strings without algorithm metadata.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons. The String() method provides the canonical
// labels used in CSV output.
type HashKind int

const (
	// KindUnknown is any accepted hash value whose length does not match
	// a known algorithm. It is still collected; downstream tooling may
	// recognize formats we do not.
	KindUnknown HashKind = iota

	// KindMD5 is a 32-character hash value.
	KindMD5

	// KindSHA1 is a 40-character hash value.
	KindSHA1

	// KindSHA256 is a 64-character hash value.
	KindSHA256
)

// Hash length constants for kind inference.
const (
	// MD5HexLength is the length of an MD5 digest in hex characters.
	MD5HexLength = 32

	// SHA1HexLength is the length of a SHA-1 digest in hex characters.
	SHA1HexLength = 40

	// SHA256HexLength is the length of a SHA-256 digest in hex characters.
	SHA256HexLength = 64
)

// String returns the canonical label for the hash kind.
// These labels appear in the Hash_Type column of CSV output.
func (k HashKind) String() string {
	switch k {
	case KindMD5:
		return "MD5"
	case KindSHA1:
		return "SHA1"
	case KindSHA256:
		return "SHA256"
	default:
		return "UNKNOWN"
	}
}

// KindOf infers the hash kind from the value's length.
// 32 characters is MD5, 40 is SHA-1, 64 is SHA-256; anything else that
// passed validation is reported as UNKNOWN rather than rejected.
func KindOf(hash string) HashKind {
	switch len(hash) {
	case MD5HexLength:
		return KindMD5
	case SHA1HexLength:
		return KindSHA1
	case SHA256HexLength:
		return KindSHA256
	default:
		return KindUnknown
	}
}

// HashRecord is a single validated hash with its derived kind and the
// timestamp of the collection run that produced it. Records are immutable
// value types; construct them with NewHashRecord.
type HashRecord struct {
	// Hash is the hash string exactly as received from the platform.
	// Case is preserved: the case-sensitive value is the identity key.
	Hash string `json:"hash"`

	// Kind is the algorithm family inferred from the hash length.
	Kind HashKind `json:"kind"`

	// CollectedAt is the timestamp of the collection run.
	CollectedAt time.Time `json:"collected_at"`
}

// NewHashRecord creates a HashRecord with the kind derived from the value.
func NewHashRecord(hash string, collectedAt time.Time) HashRecord {
	return HashRecord{
		Hash:        hash,
		Kind:        KindOf(hash),
		CollectedAt: collectedAt,
	}
}

// MarshalJSON renders the kind as its string label so JSON output is
// self-describing rather than exposing internal enum values.
func (k HashKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}
