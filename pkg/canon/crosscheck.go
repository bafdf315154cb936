package canon

import (
	"encoding/json"

	gowebpkijcs "github.com/gowebpki/jcs"
)

// CrossCheck re-canonicalizes v with the gowebpki/jcs implementation and
// reports whether it agrees byte-for-byte with h.CanonicalBytes(v). It is
// used by golden-vector tests as a second, independently-authored RFC 8785
// implementation to catch divergence the hand-rolled encoder might
// introduce — gowebpki/jcs operates on already-marshaled JSON bytes rather
// than Go values, so it transforms rather than replaces the encoder above.
func (h *Hasher) CrossCheck(v interface{}) (agree bool, ours, theirs []byte, err error) {
	ours, err = h.CanonicalBytes(v)
	if err != nil {
		return false, nil, nil, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return false, nil, nil, err
	}
	theirs, err = gowebpkijcs.Transform(raw)
	if err != nil {
		return false, ours, nil, err
	}
	return string(ours) == string(theirs), ours, theirs, nil
}
