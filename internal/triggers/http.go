package triggers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"busy_beaver/internal/beaver"

	"go.uber.org/zap"
)

// MissingBusySecondsMessage is the 400 body sent when no duration is given.
const MissingBusySecondsMessage = "Needs to define ?busySeconds= to set beaver to work!"

// ErrMissingBusySeconds means neither the query nor the body set busySeconds.
var ErrMissingBusySeconds = errors.New("busySeconds is missing")

// HTTPRequest is the part of an HTTP call the adapter reads.
type HTTPRequest struct {
	Query url.Values
	Body  []byte
}

// Response is what the HTTP adapter answers with.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

type httpResult struct {
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	FunctionName  string `json:"function_name"`
	InvocationID  string `json:"invocation_id"`
	RandomNumbers []int  `json:"random_numbers"`
}

type HTTPTrigger struct {
	worker       *Worker
	functionName string
}

func NewHTTPTrigger(worker *Worker, functionName string) *HTTPTrigger {
	return &HTTPTrigger{worker: worker, functionName: functionName}
}

func (h *HTTPTrigger) FunctionName() string { return h.functionName }

func (h *HTTPTrigger) Kind() string { return "http" }

// ExtractDuration reads busySeconds from the query string, then from a JSON
// body. There is no base64 fallback here.
func (h *HTTPTrigger) ExtractDuration(ctx Context, req HTTPRequest) (float64, error) {
	if v := req.Query.Get("busySeconds"); v != "" {
		return beaver.ParseNumber(v)
	}
	return busySecondsFromBody(req.Body)
}

func (h *HTTPTrigger) Report(ctx Context, outcome Outcome) {
	logCompletion(ctx, outcome)
}

// Handle runs one HTTP invocation and builds the response.
func (h *HTTPTrigger) Handle(ctx Context, req HTTPRequest) Response {
	outcome, err := Invoke[HTTPRequest](h.worker, ctx, h, req)
	if err != nil {
		return h.reject(ctx, err)
	}

	body, err := json.Marshal(httpResult{
		StartTime:     isoTime(outcome.StartTime),
		EndTime:       isoTime(outcome.EndTime),
		FunctionName:  outcome.Execution.FunctionName,
		InvocationID:  outcome.Execution.InvocationID,
		RandomNumbers: outcome.RandomNumbers,
	})
	if err != nil {
		return textResponse(http.StatusInternalServerError, err.Error())
	}

	return Response{
		Status:      http.StatusOK,
		ContentType: "application/json",
		Body:        body,
	}
}

func (h *HTTPTrigger) reject(ctx Context, err error) Response {
	execution := ctx.Execution()
	ctx.Log(
		fmt.Sprintf("Busy Beaver %s rejects http %s", execution.FunctionName, execution.InvocationID),
		zap.String("trigger", h.Kind()),
		zap.Error(err),
	)

	if errors.Is(err, ErrMissingBusySeconds) {
		return textResponse(http.StatusBadRequest, MissingBusySecondsMessage)
	}
	return textResponse(http.StatusBadRequest, "busySeconds must be a number of seconds")
}

// busySecondsFromBody reads the busySeconds field of a JSON object body.
// A body that is not a JSON object, or a field that is null, false, 0 or
// "", counts as missing.
func busySecondsFromBody(body []byte) (float64, error) {
	var fields map[string]any
	if len(body) == 0 || json.Unmarshal(body, &fields) != nil {
		return 0, ErrMissingBusySeconds
	}

	switch v := fields["busySeconds"].(type) {
	case nil:
		return 0, ErrMissingBusySeconds
	case float64:
		if v == 0 {
			return 0, ErrMissingBusySeconds
		}
		return v, nil
	case string:
		if v == "" {
			return 0, ErrMissingBusySeconds
		}
		return beaver.ParseNumber(v)
	case bool:
		if !v {
			return 0, ErrMissingBusySeconds
		}
	}
	return 0, fmt.Errorf("%w: busySeconds is %v", beaver.ErrUnparseableDuration, fields["busySeconds"])
}

func textResponse(status int, msg string) Response {
	return Response{
		Status:      status,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(msg),
	}
}
