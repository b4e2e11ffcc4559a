package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// StoreTimeout is the timeout for durable store operations issued by handlers
	StoreTimeout = 5 * time.Second

	// EventPublishTimeout is the timeout for async lifecycle event publishing
	EventPublishTimeout = 5 * time.Second
)

// =============================================================================
// Cluster Defaults
// =============================================================================

const (
	// DefaultHeartbeatInterval is how often a leader re-asserts itself
	DefaultHeartbeatInterval = 1 * time.Second

	// DefaultElectionTimeoutMin is the lower bound of the randomized follower timeout
	DefaultElectionTimeoutMin = 3 * time.Second

	// DefaultElectionTimeoutMax is the upper bound of the randomized follower timeout
	DefaultElectionTimeoutMax = 6 * time.Second

	// DefaultLeaderTerm is how long a won term lasts before re-election
	DefaultLeaderTerm = 30 * time.Second

	// DefaultNetTimeout bounds every peer dial/read/write during elections
	DefaultNetTimeout = 2 * time.Second

	// DefaultLoadRefresh is the CPU sampler refresh interval
	DefaultLoadRefresh = 5 * time.Second

	// DefaultPresenceTTL is how long a heartbeat keeps a peer "online"
	DefaultPresenceTTL = 10 * time.Second
)

// =============================================================================
// Event Bus Type Constants
// =============================================================================

// BusType represents the type of event bus backend
type BusType string

const (
	// BusTypeNATS represents NATS JetStream (default)
	BusTypeNATS BusType = "nats"

	// BusTypeRedis represents Redis Streams
	BusTypeRedis BusType = "redis"

	// BusTypeKafka represents Apache Kafka
	BusTypeKafka BusType = "kafka"

	// BusTypeMemory represents the in-memory bus (dev and tests)
	BusTypeMemory BusType = "memory"
)

// =============================================================================
// Store Type Constants
// =============================================================================

// StoreType represents the durable record store backend
type StoreType string

const (
	// StoreTypeEtcd persists records in etcd (default)
	StoreTypeEtcd StoreType = "etcd"

	// StoreTypeMemory keeps records in process memory (dev and tests)
	StoreTypeMemory StoreType = "memory"
)
