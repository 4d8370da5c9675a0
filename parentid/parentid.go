//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package parentid implements the provenance algebra used to track a
// message's lineage as it moves through a pipeline: each port traversal
// appends one ID of the form "U:I:L" to a message's parent sequence.
package parentid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID is a single provenance tag minted by one send call, in the form
// "U:I:L" where U is a fresh UUID, I is the zero-based index of the
// message within the list produced by the connection's transformer,
// and L is the total list length.
type ID string

// Parents is an ordered sequence of IDs, oldest first.
type Parents []ID

// Mint allocates a fresh UUID and returns the ID "U:index:total". Each
// call mints its own independent U — use it for a single-message send
// (total == 1) or when the caller has no sibling group to share a U
// across. For a send call that fans one message out into several
// sibling sub-messages, use NewGroup so the whole group shares one U
// (spec.md §3: "within one send, all recipients share the same U and
// L"). index and total must satisfy 0 <= index < total and total >= 1;
// Mint panics on violation since it always indicates an engine bug,
// never bad external input.
func Mint(index, total int) ID {
	if total < 1 {
		panic(fmt.Sprintf("parentid: total must be >= 1, got %d", total))
	}
	if index < 0 || index >= total {
		panic(fmt.Sprintf("parentid: index %d out of range [0,%d)", index, total))
	}
	return ID(fmt.Sprintf("%s:%d:%d", uuid.New().String(), index, total))
}

// Group mints every ID of one sibling set under a single shared UUID,
// one per (connection, send-call) pair. Construct with NewGroup, then
// call Mint once per sibling with that sibling's index.
type Group struct {
	u     string
	total int
}

// NewGroup allocates a fresh UUID shared by every sibling ID minted
// from the returned Group, for a set of total siblings. Panics if
// total < 1, for the same reason Mint panics on an invalid total.
func NewGroup(total int) Group {
	if total < 1 {
		panic(fmt.Sprintf("parentid: total must be >= 1, got %d", total))
	}
	return Group{u: uuid.New().String(), total: total}
}

// Mint returns the ID "U:index:total" for index, sharing g's U and
// total with every other ID minted from g. Panics if index is out of
// [0, total).
func (g Group) Mint(index int) ID {
	if index < 0 || index >= g.total {
		panic(fmt.Sprintf("parentid: index %d out of range [0,%d)", index, g.total))
	}
	return ID(fmt.Sprintf("%s:%d:%d", g.u, index, g.total))
}

// Total returns the sibling-group size g was constructed with.
func (g Group) Total() int { return g.total }

// Parse splits an ID back into its UUID, index, and total components.
// It rejects any shape other than "U:I:L" with U a valid UUID textual
// form and I, L non-negative decimal integers satisfying I < L, L >= 1.
func Parse(id ID) (u string, index, total int, err error) {
	parts := strings.Split(string(id), ":")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	u = parts[0]
	if _, perr := uuid.Parse(u); perr != nil {
		return "", 0, 0, fmt.Errorf("%w: bad uuid in %q: %v", ErrMalformed, id, perr)
	}
	index, ierr := strconv.Atoi(parts[1])
	if ierr != nil {
		return "", 0, 0, fmt.Errorf("%w: bad index in %q", ErrMalformed, id)
	}
	total, terr := strconv.Atoi(parts[2])
	if terr != nil {
		return "", 0, 0, fmt.Errorf("%w: bad total in %q", ErrMalformed, id)
	}
	if total < 1 || index < 0 || index >= total {
		return "", 0, 0, fmt.Errorf("%w: %q violates 0<=I<L, L>=1", ErrMalformed, id)
	}
	return u, index, total, nil
}

// IsLastSibling reports whether id is the last element of its sibling
// group, i.e. index == total-1. A malformed id is never the last
// sibling.
func IsLastSibling(id ID) bool {
	_, idx, total, err := Parse(id)
	if err != nil {
		return false
	}
	return idx == total-1
}

// GroupKey returns the first depth parents of p, used as an
// aggregation bucket key. depth is clamped to len(p).
func GroupKey(p Parents, depth int) Parents {
	if depth > len(p) {
		depth = len(p)
	}
	if depth < 0 {
		depth = 0
	}
	key := make(Parents, depth)
	copy(key, p[:depth])
	return key
}

// LongestCommonPrefix returns the longest sequence that is a prefix of
// every sequence in seqs. An empty or single-element input list
// returns that single sequence (or nil for no input).
func LongestCommonPrefix(seqs ...Parents) Parents {
	if len(seqs) == 0 {
		return nil
	}
	shortest := seqs[0]
	for _, s := range seqs[1:] {
		if len(s) < len(shortest) {
			shortest = s
		}
	}
	prefixLen := len(shortest)
	for i := 0; i < prefixLen; i++ {
		for _, s := range seqs {
			if s[i] != shortest[i] {
				return shortest[:i]
			}
		}
	}
	return append(Parents{}, shortest[:prefixLen]...)
}

// Key renders p as a stable string usable as a map key, e.g. for
// aggregator buckets.
func (p Parents) Key() string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = string(id)
	}
	return strings.Join(parts, "|")
}

// Append returns a new Parents with id appended, leaving p untouched.
func (p Parents) Append(id ID) Parents {
	out := make(Parents, len(p), len(p)+1)
	copy(out, p)
	return append(out, id)
}
