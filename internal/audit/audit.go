package audit

import (
	"fmt"
	"strconv"
	"strings"
)

// Mutation flags stored in audit_logs.flag.
const (
	InsertFlag = 1
	UpdateFlag = 2
	DeleteFlag = 3
)

// ObjectID identifies the mutated row. Single-column keys have one component,
// join rows carry each key column in declaration order.
type ObjectID struct {
	parts []int64
}

func NewObjectID(parts ...int64) ObjectID {
	return ObjectID{parts: parts}
}

// String encodes the key components joined by ":". The separator keeps a
// composite key like (4, 17) distinguishable from a single key "417".
func (o ObjectID) String() string {
	encoded := make([]string, len(o.parts))
	for i, p := range o.parts {
		encoded[i] = strconv.FormatInt(p, 10)
	}
	return strings.Join(encoded, ":")
}

func (o ObjectID) Components() []int64 {
	out := make([]int64, len(o.parts))
	copy(out, o.parts)
	return out
}

// ParseObjectID decodes the canonical string form back into components.
func ParseObjectID(s string) (ObjectID, error) {
	if s == "" {
		return ObjectID{}, fmt.Errorf("empty object id")
	}
	raw := strings.Split(s, ":")
	parts := make([]int64, len(raw))
	for i, r := range raw {
		v, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			return ObjectID{}, fmt.Errorf("invalid object id component %q: %w", r, err)
		}
		parts[i] = v
	}
	return ObjectID{parts: parts}, nil
}

// Entry describes one mutation to append to the trail. ActorID is nil for
// writes performed without an authenticated principal, such as seeding.
type Entry struct {
	ActorID       *int64
	TableName     string
	ObjectID      ObjectID
	Flag          int
	ChangedData   string
	Justification string
}
