package response

type StandardResponse struct {
	Status    StatusEnum `json:"status"`
	ErrorCode int        `json:"errorCode"`
	Message   string     `json:"message"`
	Data      any        `json:"data"`
	Errors    []Errors   `json:"errors"`
	RequestID string     `json:"requestId,omitempty"`
}

type StatusEnum string

const (
	StatusSuccess        StatusEnum = "SUCCESS"
	StatusPartialSuccess StatusEnum = "PARTIAL_SUCCESS"
	StatusFailed         StatusEnum = "FAILED"
)

type Errors struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
}

// Success wraps data in a successful envelope
func Success(data any, requestID string) StandardResponse {
	return StandardResponse{
		Status:    StatusSuccess,
		Message:   "Success",
		Data:      data,
		Errors:    []Errors{},
		RequestID: requestID,
	}
}

// Failure wraps errors in a failed envelope led by the first error
func Failure(data any, errs []Errors, requestID string) StandardResponse {
	resp := StandardResponse{
		Status:    StatusFailed,
		ErrorCode: 500,
		Message:   "Internal server error",
		Data:      data,
		Errors:    errs,
		RequestID: requestID,
	}
	if len(errs) > 0 {
		resp.ErrorCode = errs[0].ErrorCode
		resp.Message = errs[0].Message
	}
	return resp
}
