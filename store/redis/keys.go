package redis

// Key prefixes for primary entity storage.
const (
	prefixRule = "cascade:rule:"
	prefixJob  = "cascade:job:"
	prefixDLQ  = "cascade:dlq:"
)

// Key prefix for the idempotency ledger. Records live under
// cascade:led:<tenant>:<type>:<entity> with a TTL.
const prefixLedger = "cascade:led:"

// Key prefixes for sorted set indexes.
const (
	zRuleTenant = "cascade:z:rule:tenant:" // + tenant ID
	zRuleActive = "cascade:z:rule:active:" // + tenant ID + ":" + event type
	zJobAll     = "cascade:z:job:all"
	zJobPend    = "cascade:z:job:pending"
	zDLQAll     = "cascade:z:dlq:all"
	zDLQTenant  = "cascade:z:dlq:tenant:" // + tenant ID
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

// activeSetKey returns the active-rule index key for (tenant, event type).
func activeSetKey(tenantID, eventType string) string {
	return zRuleActive + tenantID + ":" + eventType
}
