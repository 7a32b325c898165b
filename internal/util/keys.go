package util

import "hash/fnv"

// RecordKey builds the namespaced storage key for a (subject, resource) pair.
// The "pos:" keyspace is owned by poscache; foreign writes under it are
// treated as corruption and self-healed on read.
func RecordKey(ns, subject, resource string) string {
	return "pos:" + ns + ":" + subject + ":" + resource
}

// Stripe maps a storage key onto one of n lock stripes.
func Stripe(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
