/*
Package playground implements the host side of the code playground.

A Controller owns the current source text, the ordered output log, and the
error banner. Run() creates an ephemeral sandboxed runner, transmits the
source once the runner signals readiness (or a fallback timer fires), appends
each validated output envelope to the log in arrival order, and destroys the
runner when the grace period elapses.

Every envelope is checked by the protocol guard before it is trusted: host
origin, playground tag, enumerated kind, and the active run's identifier.
A superseded run's late messages fail the identifier check and are silently
dropped, so stale runners can never write into the current log.
*/
package playground
