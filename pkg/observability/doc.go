/*
Package observability provides tools for monitoring the certwizard orchestrator.

It turns the orchestrator's lifecycle hooks into Prometheus metrics and
structured log lines.
*/
package observability
