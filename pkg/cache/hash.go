package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Key identifies one cached artefact of one page of one document.
// Variant distinguishes artefacts of the same page, for example the
// rendered bitmap at a given scale versus its intrinsic dimensions.
type Key struct {
	Source  string
	Page    int
	Variant string
}

func (k Key) String() string {
	return k.Source + "#" + strconv.Itoa(k.Page) + "/" + k.Variant
}

// digest returns the first 16 hex characters of the SHA-256 of the key.
func (k Key) digest() string {
	h := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(h[:8])
}

// SourceID fingerprints a document source for use in Key.Source. Local
// files include size and modification time so an edited PDF never serves
// stale bitmaps. Anything that cannot be stat'ed is keyed by its name;
// remote documents are identified by their content hash instead.
func SourceID(source string) string {
	fi, err := os.Stat(strings.TrimPrefix(source, "file://"))
	if err != nil {
		return source
	}
	return fmt.Sprintf("%s:%d:%d", source, fi.Size(), fi.ModTime().UnixNano())
}
