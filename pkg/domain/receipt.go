package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IssuerReceipt is the body returned by the issuer step.
type IssuerReceipt struct {
	Lines string `json:"lines"`
	Tx    string `json:"tx"`
}

// ParseIssuerReceipt decodes the issuer JSON body.
func ParseIssuerReceipt(body []byte) (IssuerReceipt, error) {
	var r IssuerReceipt
	if err := json.Unmarshal(body, &r); err != nil {
		return IssuerReceipt{}, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	return r, nil
}

// ExplorerLink substitutes the transaction id for the first %s of the explorer
// template. Other percent sequences are left as they are. Templates without a
// %s get the id appended as a path segment.
func ExplorerLink(template, tx string) string {
	if tx == "" {
		return ""
	}
	if template == "" {
		template = DefaultExplorerURL
	}
	if strings.Contains(template, "%s") {
		return strings.Replace(template, "%s", tx, 1)
	}
	return strings.TrimSuffix(template, "/") + "/" + tx
}
