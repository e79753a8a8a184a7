package gen

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("snowflake", fx.Provide(NewSnowflakeNode))

// NewSnowflakeNode builds the ID node; SNOWFLAKE_NODE overrides node 1.
func NewSnowflakeNode() (*snowflake.Node, error) {
	nodeID := int64(1)
	if v, ok := os.LookupEnv("SNOWFLAKE_NODE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			zap.L().Error("invalid SNOWFLAKE_NODE", zap.String("value", v), zap.Error(err))
			return nil, err
		}
		nodeID = n
	}
	return snowflake.NewNode(nodeID)
}
