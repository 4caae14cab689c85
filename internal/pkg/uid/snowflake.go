package uid

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Snowflake wraps a snowflake node. Each process must use a distinct node ID.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator for node, which must fit in 10 bits.
func NewSnowflake(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("uid: snowflake node %d: %w", node, err)
	}
	return &Snowflake{node: n}, nil
}

func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
