package state

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
)

// DocumentVersion tags the persisted layout of a game.
const DocumentVersion = 1

// Document is a game encoded for storage together with its integrity checksum.
type Document struct {
	ID       string
	Version  int
	Data     []byte
	Checksum string
}

// Encode serialises g and computes its checksum.
func Encode(g *Game) (Document, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return Document{}, fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	return Document{
		ID:       g.ID,
		Version:  DocumentVersion,
		Data:     data,
		Checksum: Checksum(data),
	}, nil
}

// Decode verifies the checksum and rebuilds the game. Any mismatch means the
// stored state cannot be trusted.
func Decode(doc Document) (*Game, error) {
	if doc.Version != DocumentVersion {
		return nil, rules.Invariant(rules.CodeCorruptState, "game %s: unsupported document version %d", doc.ID, doc.Version)
	}
	if got := Checksum(doc.Data); got != doc.Checksum {
		return nil, rules.Invariant(rules.CodeCorruptState, "game %s: checksum mismatch", doc.ID)
	}

	var g Game
	if err := json.Unmarshal(doc.Data, &g); err != nil {
		return nil, rules.Invariant(rules.CodeCorruptState, "game %s: decode: %v", doc.ID, err)
	}
	if g.Player1 == nil || g.Player2 == nil {
		return nil, rules.Invariant(rules.CodeCorruptState, "game %s: missing player state", doc.ID)
	}
	return &g, nil
}

// Checksum returns the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
