package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gowebpki/jcs"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

// IdeaPrefixLen bounds how much of the idea text participates in the key.
const IdeaPrefixLen = 120

// DefaultOwner is used when a request carries no owner.
const DefaultOwner = "anonymous"

// Key identifies one cached tile: (owner, tile type, idea prefix, filters hash).
type Key struct {
	Owner       string       `json:"owner"`
	Tile        hub.TileType `json:"tile"`
	Idea        string       `json:"idea"`
	FiltersHash string       `json:"filters_hash"`
}

// NewKey normalizes the idea and hashes the rest of the descriptor together
// with filters into a key, so inputs that change the fetch plan never share
// an entry.
func NewKey(owner string, tile hub.TileType, in hub.InputDescriptor, filters map[string]any) (Key, error) {
	hash, err := HashScope(in, filters)
	if err != nil {
		return Key{}, err
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = DefaultOwner
	}
	return Key{Owner: owner, Tile: tile, Idea: IdeaPrefix(in.Idea), FiltersHash: hash}, nil
}

// String renders the key for flat key-value tiers.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Owner, k.Tile, k.FiltersHash, k.Idea)
}

// IdeaPrefix lower-cases, collapses whitespace and truncates the idea.
func IdeaPrefix(idea string) string {
	s := strings.ToLower(strings.Join(strings.Fields(idea), " "))
	if utf8.RuneCountInString(s) <= IdeaPrefixLen {
		return s
	}
	return string([]rune(s)[:IdeaPrefixLen])
}

// HashFilters returns the hex sha256 of the canonical JSON of filters.
// Filters are canonicalized with JCS so map ordering never changes the hash.
func HashFilters(filters map[string]any) (string, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	return hashCanonical(filters)
}

// HashScope hashes filters together with every descriptor field except the
// idea text, which is keyed separately by prefix.
func HashScope(in hub.InputDescriptor, filters map[string]any) (string, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	in.Idea = ""
	return hashCanonical(struct {
		Input   hub.InputDescriptor `json:"input"`
		Filters map[string]any      `json:"filters"`
	}{in, filters})
}

func hashCanonical(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal filters: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize filters: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:16]), nil
}
