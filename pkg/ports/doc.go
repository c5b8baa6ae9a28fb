/*
Package ports defines the driven ports (interfaces) of the membership engine.

These interfaces decouple the workflows from external implementations, so the
engine runs unchanged over different conversation stores, directories,
document sources and messaging gateways.

# Key Interfaces

  - StateStore: persists one Conversation per identity (memory, file, redis, bolt).
  - DistributedLocker: coordinates per-identity access across replicas.
  - Directory: staff, blacklist and role records (the storage collaborator).
  - DocumentLister: candidate documents that can be pinned to new members.
  - Messenger: the outbound messaging gateway.
  - EventHandler: the inbound side, implemented by the engine.
*/
package ports
