package entity

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	// InvoiceNumberPrefix prefixes every client-generated invoice number
	InvoiceNumberPrefix = "INV#OF-"

	draftIDPrefix    = "draft-"
	lineItemIDPrefix = "service-"
)

// IdentityGenerator issues provisional identifiers and invoice numbers.
// Snowflake IDs combine a millisecond clock, a per-millisecond sequence and
// a random per-process node number, so rapid successive calls never collide.
type IdentityGenerator struct {
	node *snowflake.Node
}

// NewIdentityGenerator creates a generator with a random node number
func NewIdentityGenerator() (*IdentityGenerator, error) {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to read process nonce: %w", err)
	}
	nodeID := int64(binary.BigEndian.Uint16(buf[:])) % (1 << snowflake.NodeBits)
	return NewIdentityGeneratorWithNode(nodeID)
}

// NewIdentityGeneratorWithNode creates a generator with an explicit node number
func NewIdentityGeneratorWithNode(nodeID int64) (*IdentityGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &IdentityGenerator{node: node}, nil
}

// InvoiceNumber returns a display number such as INV#OF-1A2B3C4D5E
func (g *IdentityGenerator) InvoiceNumber() string {
	return InvoiceNumberPrefix + strings.ToUpper(g.node.Generate().Base36())
}

// LineItemID returns an identifier unique within the process lifetime
func (g *IdentityGenerator) LineItemID() string {
	return lineItemIDPrefix + g.node.Generate().String()
}

// ProvisionalID returns a client-only invoice identifier.
// UUIDv7 is time-ordered and carries random bits.
func (g *IdentityGenerator) ProvisionalID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return draftIDPrefix + id.String()
}

// IsProvisionalID reports whether id was issued by ProvisionalID
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, draftIDPrefix)
}
