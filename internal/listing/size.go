package listing

import (
	"strconv"
	"strings"
)

// sizeUnits maps the single-letter suffixes Apache's autoindex prints
// to byte multipliers.
var sizeUnits = map[byte]int64{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// ParseSize converts a listing size cell to bytes. Accepts plain byte
// counts ("523443"), human-readable values ("1.2G", "523K", "4.0 MiB")
// and returns -1 for anything it cannot interpret, including the "-"
// directories carry.
func ParseSize(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return -1
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}

	// Split the trailing unit off: "1.2G", "4.0 MiB", "523 KB".
	num := strings.TrimRight(s, "iIbB \t")
	if num == "" {
		return -1
	}
	unit := num[len(num)-1]
	mult, ok := sizeUnits[unit&^0x20]
	if !ok {
		return -1
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(num[:len(num)-1]), 64)
	if err != nil || value < 0 {
		return -1
	}

	return int64(value * float64(mult))
}
