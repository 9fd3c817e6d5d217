/*
Package ports defines the driven ports of nodeflow.

These interfaces decouple graph execution from storage backends and from the
coordination of replicas.

# Key Interfaces

  - GraphStore: persists graph documents (memory, file and redis adapters).
  - Watchable: optional change feed of a GraphStore, used for hot reload.
  - DistributedLocker: serialises runs of one graph across replicas.

RunGraphStoreContract is a shared test suite every GraphStore adapter runs.
*/
package ports
