package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes of identifiers minted by the console itself. The collections API
// never issues ids starting with either of them.
const (
	TempPrefix  = "tmp-"
	LocalPrefix = "local-"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewTemp returns an id for an optimistic record awaiting the server
func NewTemp() string { return TempPrefix + New() }

// NewLocal returns an id for a record persisted only in the local cache
func NewLocal() string { return LocalPrefix + New() }

// IsTemp reports whether id was minted by NewTemp
func IsTemp(id string) bool { return strings.HasPrefix(id, TempPrefix) }

// IsLocal reports whether id was minted by NewLocal
func IsLocal(id string) bool { return strings.HasPrefix(id, LocalPrefix) }

// IsClientGenerated reports whether id came from this console rather than the server
func IsClientGenerated(id string) bool { return IsTemp(id) || IsLocal(id) }
