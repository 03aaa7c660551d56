package validation

// ToDisplay converts a canonical 0-based index to the 1-based number shown
// to users.
func ToDisplay(internal int) int { return internal + 1 }

// FromDisplay converts a 1-based user number back to a 0-based index.
func FromDisplay(display int) int { return display - 1 }

// OptionLetter labels an option position: 0 -> "A", 25 -> "Z", 26 -> "AA".
func OptionLetter(i int) string {
	if i < 0 {
		return ""
	}
	var b []byte
	for n := i; ; n = n/26 - 1 {
		b = append([]byte{byte('A' + n%26)}, b...)
		if n < 26 {
			break
		}
	}
	return string(b)
}
