package errutil

import "net/http"

// CoreStatus is the transport independent error category.
type CoreStatus string

const (
	StatusOK                  CoreStatus = "OK"
	StatusBadRequest          CoreStatus = "BAD_REQUEST"
	StatusValidationFailed    CoreStatus = "VALIDATION_FAILED"
	StatusUnauthorized        CoreStatus = "UNAUTHORIZED"
	StatusForbidden           CoreStatus = "FORBIDDEN"
	StatusNotFound            CoreStatus = "NOT_FOUND"
	StatusConflict            CoreStatus = "CONFLICT"
	StatusUnprocessableEntity CoreStatus = "UNPROCESSABLE_ENTITY"
	StatusTooManyRequests     CoreStatus = "TOO_MANY_REQUESTS"
	StatusInternal            CoreStatus = "INTERNAL"
	StatusBadGateway          CoreStatus = "BAD_GATEWAY"
	StatusServiceUnavailable  CoreStatus = "SERVICE_UNAVAILABLE"
	StatusTimeout             CoreStatus = "TIMEOUT"
	StatusUnknown             CoreStatus = "UNKNOWN"
)

// envelope codes; 0 is success
var codes = map[CoreStatus]int{
	StatusOK:                  0,
	StatusBadRequest:          40000,
	StatusValidationFailed:    42200,
	StatusUnauthorized:        40100,
	StatusForbidden:           40300,
	StatusNotFound:            40400,
	StatusConflict:            40900,
	StatusUnprocessableEntity: 42201,
	StatusTooManyRequests:     42900,
	StatusInternal:            50000,
	StatusBadGateway:          50200,
	StatusServiceUnavailable:  50300,
	StatusTimeout:             50400,
	StatusUnknown:             59999,
}

// Code returns the numeric envelope code for s.
func (s CoreStatus) Code() int {
	if c, ok := codes[s]; ok {
		return c
	}
	return codes[StatusUnknown]
}

// StatusFromCode maps an envelope code back to its CoreStatus.
func StatusFromCode(code int) CoreStatus {
	for s, c := range codes {
		if c == code {
			return s
		}
	}
	return StatusUnknown
}

// FromCode builds the error a client should surface for a non-zero envelope.
func FromCode(code int, message string) error {
	if code == 0 {
		return nil
	}
	return New(StatusFromCode(code), message)
}

func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusOK:
		return http.StatusOK
	case StatusBadRequest:
		return http.StatusBadRequest
	case StatusValidationFailed, StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict:
		return http.StatusConflict
	case StatusTooManyRequests:
		return http.StatusTooManyRequests
	case StatusBadGateway:
		return http.StatusBadGateway
	case StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	case StatusTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
