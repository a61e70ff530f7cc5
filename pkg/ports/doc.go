/*
Package ports defines the driven ports (interfaces) of the roboflow engine.

These interfaces decouple the interpreter from the device it drives, the place projects
are read from and the place run reports are kept.

# Key Interfaces

  - Device: performs clicks, text entry and app launches, and dumps the UI hierarchy.
  - ProjectLoader: supplies the project to run or inspect.
  - RunStore: persists run reports.
  - DistributedLocker: serializes runs against one device across processes.
*/
package ports
