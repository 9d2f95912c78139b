package crawler

import (
	"crypto/md5" //nolint:gosec // MD5 used for change detection, not security
	"fmt"
	"sort"
	"strconv"

	"cineindex/internal/listing"
)

// Fingerprint computes an order-independent digest of a directory
// listing. Children are hashed sorted by name, so two listings with the
// same entries in a different order produce the same fingerprint and an
// unchanged directory is recognized regardless of server sort settings.
func Fingerprint(entries []listing.Entry) string {
	names := make([]int, len(entries))
	for i := range names {
		names[i] = i
	}
	sort.Slice(names, func(a, b int) bool {
		return entries[names[a]].Name < entries[names[b]].Name
	})

	h := md5.New() //nolint:gosec // change detection only
	for _, i := range names {
		e := entries[i]
		h.Write([]byte(e.Name))
		h.Write([]byte{'|'})
		h.Write([]byte(strconv.FormatInt(e.Size, 10)))
		h.Write([]byte{'|'})
		h.Write([]byte(e.Modified))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
