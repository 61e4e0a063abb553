package numutil

import "strconv"

// Integer is any signed or unsigned integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// IntWithCommas returns a string representation of an integer with commas
// between groups of three digits.
//
// Example:
//
//	12345 -> "12,345"
func IntWithCommas[T Integer](i T) string {
	var digits string
	if i < 0 {
		// Formatting the unsigned bit pattern keeps the minimum value of
		// every signed type in range.
		digits = strconv.FormatUint(-uint64(int64(i)), 10)
	} else {
		digits = strconv.FormatUint(uint64(i), 10)
	}

	n := len(digits)
	out := make([]byte, 0, n+n/3+1)
	if i < 0 {
		out = append(out, '-')
	}
	for idx := 0; idx < n; idx++ {
		if idx > 0 && (n-idx)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[idx])
	}
	return string(out)
}
