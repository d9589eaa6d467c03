/*
Package domain contains the core domain models of the certwizard orchestrator.

It describes the wizard as a fixed sequence of Steps. Each Step binds one
trigger control, one display area and one reveal panel to a single HTTP
request against the wizard endpoint. This package is kept free of I/O so that
the runtime and every adapter share the same vocabulary.

# Key Entities

  - Step: one stage of the wizard (prepare, template, roster, certificate, issuer).
  - Phase: the lifecycle of a step invocation (idle, pending, done, failed).
  - IssuerReceipt: the JSON body returned by the terminal issuer step.
  - Outcome: the observable result of a single step invocation.
*/
package domain
