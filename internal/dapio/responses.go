package dapio

import "github.com/google/go-dap"

// NewErrorResponse builds an ErrorResponse for the given request, carrying
// a stable numeric code (per spec.md §7) and human-readable message.
func NewErrorResponse(seq int, req dap.Request, code int, message string) *dap.ErrorResponse {
	return &dap.ErrorResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "response"},
			RequestSeq:      req.Seq,
			Success:         false,
			Command:         req.Command,
			Message:         message,
		},
		Body: dap.ErrorResponseBody{
			Error: &dap.ErrorMessage{
				Id:       code,
				Format:   message,
				ShowUser: true,
			},
		},
	}
}

// Ack fills in the common fields of a successful response's embedded
// dap.Response, given the originating request.
func Ack(seq int, req dap.Request) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "response"},
		RequestSeq:      req.Seq,
		Success:         true,
		Command:         req.Command,
	}
}
