package common

// RequestIDHeaderName is the HTTP header used to tag outbound API calls
// so client requests can be correlated in server logs.
const RequestIDHeaderName = "X-Request-Id"
