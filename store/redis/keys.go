package redis

// Key prefixes for primary entity storage.
const (
	prefixEndpoint   = "conduit:ep:"
	prefixController = "conduit:ctl:"
	prefixIngest     = "conduit:inh:"
	prefixDispatch   = "conduit:outh:"
	prefixQueueItem  = "conduit:qi:"
	prefixLogRecord  = "conduit:log:"
)

// Key prefixes for unique indexes.
const (
	uniqueIngestSlug = "conduit:u:inh:slug:"
)

// Sorted set indexes. Entities score by creation time so ranged reads
// come back in insertion order; the pending queue scores by
// NextAttemptAt so due items sort first.
const (
	zEndpointAll   = "conduit:z:ep:all"
	zControllerAll = "conduit:z:ctl:all"
	zIngestAll     = "conduit:z:inh:all"
	zDispatchAll   = "conduit:z:outh:all"
	zQueuePending  = "conduit:z:qi:pending"
	zLogAll        = "conduit:z:log:all"
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}
