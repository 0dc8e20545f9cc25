/*
Package ports defines the driven ports (interfaces) of the analysis engine.

These interfaces decouple the state machine from its persistence and coordination
backends, so the same state graph runs against memory, SQLite or Redis.

# Key Interfaces

  - FlagStore: persisted application-state flags, accessed inside scoped transactions.
  - WindowStore: production windows (observation state slots) of a machine.
  - DistributedLocker: distributed locking so that a single replica analyzes a context.
*/
package ports
