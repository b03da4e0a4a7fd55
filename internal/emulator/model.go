package emulator

// Runtime API metadata headers carried on every "next invocation" response.
// https://docs.aws.amazon.com/lambda/latest/dg/runtimes-api.html
const (
	HeaderAWSRequestID       = "Lambda-Runtime-Aws-Request-Id"
	HeaderDeadlineMS         = "Lambda-Runtime-Deadline-Ms"
	HeaderTraceID            = "Lambda-Runtime-Trace-Id"
	HeaderInvokedFunctionARN = "Lambda-Runtime-Invoked-Function-Arn"
	HeaderClientContext      = "Lambda-Runtime-Client-Context"
)

// ackBody acknowledges a posted response or error.
const ackBody = `{"status":"success"}`

// InitStatus describes how runtime initialization concluded.
type InitStatus string

const (
	// InitCompleted means the runtime polled for its first invocation.
	InitCompleted InitStatus = "completed"
	// InitAlreadyCompleted means initialization had already been resolved
	// when the outcome was recorded, e.g. by a concurrent disposal.
	InitAlreadyCompleted InitStatus = "already-completed"
	// InitError means the runtime reported a cold-start failure, either by
	// posting to the init error route or by returning an error from its
	// entry point before the first poll.
	InitError InitStatus = "error"
	// InitHostExited means the entry point returned cleanly without ever
	// requesting an invocation.
	InitHostExited InitStatus = "host-exited"
)

// InitResult is the outcome of Start. Error is set only for InitError.
type InitResult struct {
	Status InitStatus
	Error  *ErrorResponse
}

// ErrorResponse is the error payload shape the runtime API exchanges.
type ErrorResponse struct {
	ErrorMessage string   `json:"errorMessage"`
	ErrorType    string   `json:"errorType,omitempty"`
	RequestId    *string  `json:"requestId,omitempty"`
	StackTrace   []string `json:"stackTrace,omitempty"`
}

// InvocationResult is the raw outcome of a completed invocation. Payload is
// the undecoded body the runtime posted; Error is populated instead when the
// runtime reported a failure. Exactly one of the two is meaningful, selected
// by WasSuccess.
type InvocationResult struct {
	WasSuccess bool
	Payload    []byte
	Error      *ErrorResponse
}

// Response is the typed outcome produced by InvokeJSON.
type Response[T any] struct {
	WasSuccess bool
	Response   *T
	Error      *ErrorResponse
}

type completionKind int

const (
	completionResponse completionKind = iota
	completionError
)

func (k completionKind) String() string {
	if k == completionError {
		return "error"
	}
	return "response"
}

// invocationCompletion pairs the posted body with which route delivered it.
type invocationCompletion struct {
	kind    completionKind
	payload []byte
}

// initOutcome is the internal resolution of the one-shot init signal.
type initOutcome struct {
	status InitStatus
	err    *ErrorResponse
}
