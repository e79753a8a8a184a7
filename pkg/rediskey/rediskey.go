package rediskey

import "fmt"

const (
	SequencePrefix     = "seq"
	PointsLedgerPrefix = "seq:points"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// PointsLedgerDayKey returns "seq:points:{yymmdd}".
func PointsLedgerDayKey(day string) string {
	return NamespaceKey(PointsLedgerPrefix, day)
}
