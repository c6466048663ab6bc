package collector

// IsValidHash reports whether a candidate string is a hash value of the
// expected length. The accepted alphabet is alphanumeric, which is
// intentionally looser than strict hexadecimal: the platform is the source
// of truth for what a hash-shaped string looks like, and tightening the
// check here would silently drop values the platform considers valid.
//
// Pure function; no failure modes beyond returning false.
func IsValidHash(candidate string, expectedLength int) bool {
	if len(candidate) == 0 || len(candidate) != expectedLength {
		return false
	}
	for _, r := range candidate {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
