/*
Package certwizard drives a multi-step certificate issuing wizard against a remote HTTP endpoint.

The wizard is a fixed chain of steps: prepare, template, roster, certificate and
issuer. Each step disables its trigger, shows a "processing" placeholder, issues
exactly one request and, once it completes with 200 OK, writes the response into
its display area, reveals its panel and unlocks the next step. The issuer step is
terminal: its trigger stays disabled after it succeeds.

# Concept

The user interface is a port (ports.View). The same orchestrator can drive a
terminal, an NDJSON stream, the HTML control page served by the http adapter, or
an in-memory recorder in tests. Requests go through ports.Transport, which
defaults to a net/http client.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/certwizard"
		"github.com/aretw0/certwizard/pkg/adapters/memory"
	)

	func main() {
		view := memory.NewView()
		wiz, err := certwizard.New("http://localhost:8000/issue.php", certwizard.WithView(view))
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		if _, err := wiz.Sequence(ctx, "name,email\nAda,ada@example.org"); err != nil {
			log.Fatal(err)
		}
		log.Println(view.Text("issuer-output"), view.Link("issuer-output"))
	}

# Failure

A failed step (transport error, non-200 status, malformed issuer receipt,
timeout) moves to the failed phase, re-enables its trigger and writes
"Error: <reason>" into its display area. The next step stays locked.
*/
package certwizard
