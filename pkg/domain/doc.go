/*
Package domain contains the run-level models shared by the interpreter, its adapters and
its observers.

It is kept free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Report: the outcome, visited-state trace and timing of one scenario run.
  - Outcome / ErrorKind: the terminal states of a run and the reason an aborted run stopped.
  - LifecycleHooks: synchronous callbacks fired on state entry and exit, action dispatch,
    guard evaluation and run completion.
*/
package domain
