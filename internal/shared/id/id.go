// Package id provides centralized ID generation for the backend.
//
// Every persisted document (comments, replies, reviews, projects, users)
// is keyed by a prefixed ULID:
//   - Lexicographic sortability: newest-first listing is a reverse key scan
//   - Prefixed types: cmt_*, rpl_*, rev_*, prj_*, usr_* read well in logs
//   - Type safety: separate string types prevent passing a review id where
//     a comment id is expected
//
// Two writes issued in the same millisecond still receive distinct ids;
// the store performs no further de-duplication.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// CommentID identifies a positioned page comment
type CommentID string

// ReplyID identifies a reply inside a comment thread
type ReplyID string

// ReviewID identifies a freeform canvas annotation
type ReviewID string

// ProjectID identifies a review project
type ProjectID string

// UserID identifies a user known to the directory
type UserID string

// RequestID identifies an API request or trace span
type RequestID string

const (
	CommentPrefix = "cmt"
	ReplyPrefix   = "rpl"
	ReviewPrefix  = "rev"
	ProjectPrefix = "prj"
	UserPrefix    = "usr"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by a monotonic reader over crypto/rand,
// so ids generated within one millisecond still sort in creation order.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

func NewCommentID() CommentID { return CommentID(Default().GenerateWithPrefix(CommentPrefix)) }
func NewReplyID() ReplyID     { return ReplyID(Default().GenerateWithPrefix(ReplyPrefix)) }
func NewReviewID() ReviewID   { return ReviewID(Default().GenerateWithPrefix(ReviewPrefix)) }
func NewProjectID() ProjectID { return ProjectID(Default().GenerateWithPrefix(ProjectPrefix)) }
func NewUserID() UserID       { return UserID(Default().GenerateWithPrefix(UserPrefix)) }
func NewRequestID() RequestID { return RequestID(Default().GenerateWithPrefix(RequestPrefix)) }

func (id CommentID) String() string { return string(id) }
func (id ReplyID) String() string   { return string(id) }
func (id ReviewID) String() string  { return string(id) }
func (id ProjectID) String() string { return string(id) }
func (id UserID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// HasPrefix reports whether id is a well-formed prefixed ULID of the given kind.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	return ok && IsValid(rest)
}

// Timestamp extracts the creation time from a plain or prefixed ULID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
