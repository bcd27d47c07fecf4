package protocol

import "encoding/json"

// Response status values.
const (
	StatusOk    = "Ok"
	StatusError = "Error"
)

// Response is the JSON envelope returned for every request. Result is only
// present for a successful GET; Mesg only on Error.
type Response struct {
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Mesg   string `json:"mesg,omitempty"`
}

// Ok returns a bare success envelope.
func Ok() Response {
	return Response{Status: StatusOk}
}

// OkResult returns a success envelope carrying a GET result.
func OkResult(result string) Response {
	return Response{Status: StatusOk, Result: result}
}

// Error returns an error envelope with the given message.
func Error(mesg string) Response {
	return Response{Status: StatusError, Mesg: mesg}
}

// Encode serializes the envelope to JSON.
func (r Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeResponse parses a JSON envelope received from the server.
func DecodeResponse(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, err
	}
	return r, nil
}

// IsOk reports whether the envelope carries a success status.
func (r Response) IsOk() bool {
	return r.Status == StatusOk
}
