package collector

import (
	"hashharvest/internal/model"
)

// FieldExpectations maps an entity field name to the expected hash length
// for its values. A length of AnyLength disables the length check for that
// field; the value only has to be a non-empty string.
type FieldExpectations map[string]int

// AnyLength marks a field whose string values are accepted without length
// validation. Used for the fallback source, whose fields mix hash formats.
const AnyLength = 0

// PrimaryFieldExpectations are the hash-bearing fields of FileHash
// entities with their strict lengths.
var PrimaryFieldExpectations = FieldExpectations{
	"sha1HexString":    model.SHA1HexLength,
	"iconMd5HexString": model.MD5HexLength,
}

// SecondaryFieldExpectations are the hash-bearing fields of MalopProcess
// entities. Their formats vary per deployment, so no length constraint is
// applied; any string value is accepted.
var SecondaryFieldExpectations = FieldExpectations{
	"imageFile.md5String":    AnyLength,
	"imageFile.sha1String":   AnyLength,
	"imageFile.sha256String": AnyLength,
}

// Extract pulls validated hash strings out of one page of entities.
// For each entity, for each expected field present, for each value in the
// field's value list, the value is validated (when the expectation carries
// a length) and survivors are inserted into the result set.
//
// Entities lacking a field, or fields lacking values, are silently skipped;
// absence is not an error. Extraction is pure: the same page always yields
// the same set, and an empty page yields an empty set, never a failure.
func Extract(entities model.EntityMap, expectations FieldExpectations) model.HashSet {
	hashes := model.NewHashSet()

	for _, entity := range entities {
		for field, expectedLength := range expectations {
			values, ok := entity.SimpleValues[field]
			if !ok {
				continue
			}
			for _, value := range values.Values {
				if expectedLength == AnyLength {
					if value != "" {
						hashes.Add(value)
					}
					continue
				}
				if IsValidHash(value, expectedLength) {
					hashes.Add(value)
				}
			}
		}
	}

	return hashes
}
