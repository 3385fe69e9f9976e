package placement

import (
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPath is returned by KeyFromPath for strings Path never produces.
var ErrMalformedPath = errors.New("malformed content path")

// Path maps a key to the relative path its blob is stored under on every
// replica.
//
// The first two bytes of md5(key) become two hex directory levels, which
// caps fan-out at 256 entries per directory and 65536 leaf directories. The
// leaf is the whole key in unpadded URL-safe base64, so distinct keys never
// share a path and the key can be recovered from it.
//
//	Path("foo") == "ac/bd/Zm9v"
func Path(key string) string {
	d := md5.Sum([]byte(key))
	return fmt.Sprintf("%02x/%02x/%s", d[0], d[1], base64.RawURLEncoding.EncodeToString([]byte(key)))
}

// KeyFromPath reverses Path. It rejects paths whose directory prefix does not
// match the decoded key.
func KeyFromPath(p string) (string, error) {
	parts := strings.Split(p, "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: %q", ErrMalformedPath, p)
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedPath, p, err)
	}
	key := string(raw)
	if Path(key) != p {
		return "", fmt.Errorf("%w: %q: prefix mismatch", ErrMalformedPath, p)
	}
	return key, nil
}
