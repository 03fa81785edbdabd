/*
Package main provides the agentbridge command line entry point.

cmd/agentbridge executes and inspects cross-framework workflow definitions:

	agentbridge run workflow.yaml              # execute a workflow definition
	agentbridge run --input key=value w.yaml   # execute with input variables
	agentbridge validate workflow.yaml         # check structure and dependencies
	agentbridge version                        # show version information

The run command drives the definition through the workflow engine with a
dry-run executor that echoes task inputs back as outputs, which exercises
dependency ordering, template resolution, retries, and failure isolation
without calling real agent frameworks. Configuration is loaded per the
config package: defaults, then an optional YAML file, then AGENTBRIDGE_*
environment variables. With metrics enabled, a Prometheus endpoint is
served on a separate port for the lifetime of the run.
*/
package main
