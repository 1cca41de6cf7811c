package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// ulid.Monotonic keeps IDs from the same millisecond increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string for now.
func New() string {
	return At(time.Now())
}

// At returns a ULID string whose timestamp component is t. Journal entries
// use the decision time so IDs sort with the journal.
func At(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// Only possible if entropy fails or t is before the unix epoch.
		panic(err)
	}
	return id.String()
}

// ClientOrderID returns a short order tag "<prefix>-<ulid suffix>" that fits
// the venue's comment field. max <= 0 means no limit.
func ClientOrderID(prefix string, max int) string {
	s := New()
	if prefix != "" {
		s = strings.ToLower(prefix) + "-" + s
	}
	if max > 0 && len(s) > max {
		// Keep the random tail; the head is the shared timestamp.
		s = s[len(s)-max:]
	}
	return s
}
