package rediskey

import "fmt"

// Key prefixes shared across services.
const (
	VisitPrefix = "visit"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildVisitKey returns "visit:{visitID}"
func BuildVisitKey(visitID string) string {
	return NamespaceKey(VisitPrefix, visitID)
}
