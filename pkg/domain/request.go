package domain

import (
	"net/url"
	"strings"
)

// ContentTypeForm is sent with every POST step.
const ContentTypeForm = "application/x-www-form-urlencoded"

// Request is a single HTTP exchange issued by a step.
type Request struct {
	Step        StepName
	Method      Method
	URL         string
	ContentType string
	Body        string
}

// Response is the completed exchange.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// BuildRequest assembles the request for a step against the endpoint.
// The input is only used by POST steps and is sent as "field=input".
func BuildRequest(endpoint string, step Step, input string) Request {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	req := Request{
		Step:   step.Name,
		Method: step.Method,
		URL:    endpoint + sep + step.Selector,
	}
	if step.Method == MethodPost {
		req.ContentType = ContentTypeForm
		req.Body = step.Field + "=" + escapeFormValue(input)
	}
	return req
}

// escapeFormValue form-encodes the value but keeps the characters a roster
// is made of readable, so "a,b,c" travels as "csv=a,b,c".
func escapeFormValue(v string) string {
	escaped := url.QueryEscape(v)
	return strings.NewReplacer("%2C", ",", "%3A", ":", "%40", "@").Replace(escaped)
}
