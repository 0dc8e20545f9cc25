/*
Package domain contains the core domain models of the analysis engine.

It defines the entities shared by the state machine core, the concrete states and the
persistence adapters: monitored machines, persisted flags (application states) and
production windows (observation state slots). The package is free of I/O.

# Key Entities

  - Machine: a monitored device, or the global (machine-less) scope.
  - Flag: an existence-only persisted marker identified by a string key.
  - ProductionWindow: a half-open time range classified as production or not.
  - StateEvent / RunEvent: observability payloads emitted by the driver loop.
*/
package domain
