/*
Package ports defines the driven ports (interfaces) of the certwizard orchestrator.

These interfaces decouple the step orchestration from the outside world, so the
same runtime can drive a terminal, an HTML page or a recorder in tests, and can
talk to the real endpoint or to a fake.

# Key Interfaces

  - View: the UI surface a step mutates (controls, display areas, panels).
  - Transport: issues the single HTTP request of a step.
  - Guard: enforces at most one in-flight request per step across processes.
*/
package ports
