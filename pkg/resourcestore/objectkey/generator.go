package objectkey

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for blob key generation strategies
type Generator interface {
	// GenerateKey creates a blob key for a resource's uploaded file.
	// fileName only contributes its extension.
	GenerateKey(resourceID uuid.UUID, fileName string) string
}

// ShardedGenerator provides Git-style sharded keys
// Structure: {shard}/{uuid}{.ext}, e.g. 3f/3f2b6c1e-...-9d.pdf
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding.
	// Zero produces flat keys.
	ShardLength int
	// NewID returns the random part of the key. Defaults to uuid.New.
	NewID func() uuid.UUID
}

// NewDefaultGenerator returns the generator used when none is configured
func NewDefaultGenerator() *ShardedGenerator {
	return &ShardedGenerator{ShardLength: 2}
}

// NewFlatGenerator returns a generator producing {uuid}{.ext} keys
func NewFlatGenerator() *ShardedGenerator {
	return &ShardedGenerator{}
}

func (g *ShardedGenerator) GenerateKey(resourceID uuid.UUID, fileName string) string {
	newID := g.NewID
	if newID == nil {
		newID = uuid.New
	}
	id := newID().String()
	name := id + Extension(fileName)

	shard := g.ShardLength
	if shard <= 0 {
		return name
	}
	if shard > 8 {
		shard = 8
	}
	return path.Join(id[:shard], name)
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Extension returns the lower-cased extension of fileName including the dot,
// or "" when it is missing or contains anything but letters and digits.
func Extension(fileName string) string {
	// Windows clients may send full paths
	if i := strings.LastIndexAny(fileName, `/\`); i >= 0 {
		fileName = fileName[i+1:]
	}
	ext := strings.ToLower(path.Ext(fileName))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// IsValidKey reports whether key is safe to resolve below a storage root:
// relative, clean and free of parent references.
func IsValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	if path.Clean(key) != key {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return false
		}
	}
	return true
}
