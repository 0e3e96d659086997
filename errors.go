package transmission

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorCode represents a specific error type for client-side handling
type ErrorCode string

const (
	// ErrorCodeNone indicates no error
	ErrorCodeNone ErrorCode = ""

	// ErrorCodeAuthFailure indicates the daemon rejected the HTTP credentials - requires user intervention
	ErrorCodeAuthFailure ErrorCode = "AUTH_FAILURE"

	// ErrorCodeTimeout indicates connection or request timeout - temporary, can retry
	ErrorCodeTimeout ErrorCode = "TIMEOUT"

	// ErrorCodeDNS indicates DNS resolution failure - check hostname configuration
	ErrorCodeDNS ErrorCode = "DNS_ERROR"

	// ErrorCodeHTTPSRequired indicates HTTP was used but HTTPS is required
	ErrorCodeHTTPSRequired ErrorCode = "HTTPS_REQUIRED"

	// ErrorCodeSSLError indicates SSL/TLS certificate or connection error
	ErrorCodeSSLError ErrorCode = "SSL_ERROR"

	// ErrorCodeVersionIncompatible indicates the daemon speaks an unsupported RPC version
	ErrorCodeVersionIncompatible ErrorCode = "VERSION_INCOMPATIBLE"

	// ErrorCodeConnectionRefused indicates the server actively refused the connection
	ErrorCodeConnectionRefused ErrorCode = "CONNECTION_REFUSED"

	// ErrorCodeNetworkUnreachable indicates network routing issues
	ErrorCodeNetworkUnreachable ErrorCode = "NETWORK_UNREACHABLE"

	// ErrorCodeBadGateway indicates a proxy/gateway error (502)
	ErrorCodeBadGateway ErrorCode = "BAD_GATEWAY"

	// ErrorCodeServiceUnavailable indicates the service is temporarily unavailable (503)
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// ErrorCodeHTTPStatus indicates any other unsuccessful HTTP status
	ErrorCodeHTTPStatus ErrorCode = "HTTP_STATUS"

	// ErrorCodeTokenRenewalExhausted indicates the session token was rejected again after renewal
	ErrorCodeTokenRenewalExhausted ErrorCode = "TOKEN_RENEWAL_EXHAUSTED"

	// ErrorCodeServer indicates the daemon executed the call and reported a failure
	ErrorCodeServer ErrorCode = "SERVER_ERROR"

	// ErrorCodeDecode indicates the response did not have the expected shape
	ErrorCodeDecode ErrorCode = "DECODE_ERROR"

	// ErrorCodeEncode indicates the request body could not be serialized
	ErrorCodeEncode ErrorCode = "ENCODE_ERROR"

	// ErrorCodeTorrentNotFound indicates no torrent matched the requested hash
	ErrorCodeTorrentNotFound ErrorCode = "TORRENT_NOT_FOUND"

	// ErrorCodeUnknown indicates an unclassified error
	ErrorCodeUnknown ErrorCode = "UNKNOWN"
)

// transportCodes are the codes describing connectivity or HTTP-level failures.
var transportCodes = map[ErrorCode]bool{
	ErrorCodeTimeout:            true,
	ErrorCodeDNS:                true,
	ErrorCodeHTTPSRequired:      true,
	ErrorCodeSSLError:           true,
	ErrorCodeConnectionRefused:  true,
	ErrorCodeNetworkUnreachable: true,
	ErrorCodeBadGateway:         true,
	ErrorCodeServiceUnavailable: true,
	ErrorCodeHTTPStatus:         true,
	ErrorCodeUnknown:            true,
}

// ClientError represents a structured error with classification
type ClientError struct {
	Code    ErrorCode
	Message string
	Err     error
	// Permanent indicates whether this error requires user intervention (true)
	// or can be resolved by retrying (false)
	Permanent bool
	// StatusCode is the HTTP status of the response, zero when no response was received
	StatusCode int
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsPermanent returns true if the error requires user intervention
func (e *ClientError) IsPermanent() bool {
	return e.Permanent
}

// IsTransport reports whether the call failed before the daemon produced an RPC response.
func (e *ClientError) IsTransport() bool {
	return transportCodes[e.Code]
}

// NewClientError creates a new ClientError
func NewClientError(code ErrorCode, message string, err error, permanent bool) *ClientError {
	return &ClientError{
		Code:      code,
		Message:   message,
		Err:       err,
		Permanent: permanent,
	}
}

func newServerError(result string) *ClientError {
	return NewClientError(ErrorCodeServer, result, nil, true)
}

func newDecodeError(message string, err error) *ClientError {
	return NewClientError(ErrorCodeDecode, message, err, true)
}

func newTorrentNotFound(hash string) *ClientError {
	return NewClientError(ErrorCodeTorrentNotFound, fmt.Sprintf("torrent %s not found", hash), nil, true)
}

func newTokenRenewalExhausted(statusCode int) *ClientError {
	e := NewClientError(
		ErrorCodeTokenRenewalExhausted,
		"session token rejected again after renewal",
		nil,
		true,
	)
	e.StatusCode = statusCode
	return e
}

// ClassifyError analyzes an error and returns a structured ClientError
func ClassifyError(err error) *ClientError {
	if err == nil {
		return nil
	}

	// Already a ClientError
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}

	errStr := err.Error()

	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewClientError(
			ErrorCodeDNS,
			fmt.Sprintf("Failed to resolve hostname: %s", dnsErr.Name),
			err,
			true,
		)
	}

	// Network operation errors (connection refused, timeout, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return classifyOpError(opErr, err)
	}

	// URL errors
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return NewClientError(
				ErrorCodeTimeout,
				"Request timed out",
				err,
				false,
			)
		}
	}

	// TLS/SSL errors
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return NewClientError(
			ErrorCodeSSLError,
			"SSL certificate verification failed",
			err,
			true,
		)
	}

	return classifyByMessage(errStr, err)
}

// classifyOpError classifies net.OpError errors
func classifyOpError(opErr *net.OpError, originalErr error) *ClientError {
	if opErr.Op == "dial" {
		if strings.Contains(opErr.Error(), "connection refused") {
			return NewClientError(
				ErrorCodeConnectionRefused,
				"Connection refused - daemon may be down or port is incorrect",
				originalErr,
				false,
			)
		}

		if strings.Contains(opErr.Error(), "no route to host") ||
			strings.Contains(opErr.Error(), "network is unreachable") {
			return NewClientError(
				ErrorCodeNetworkUnreachable,
				"Network unreachable - check network connectivity",
				originalErr,
				false,
			)
		}
	}

	if opErr.Timeout() {
		return NewClientError(
			ErrorCodeTimeout,
			"Connection timed out",
			originalErr,
			false,
		)
	}

	return NewClientError(
		ErrorCodeUnknown,
		"Network operation failed",
		originalErr,
		false,
	)
}

// classifyByMessage classifies errors based on error message patterns
func classifyByMessage(errStr string, err error) *ClientError {
	lowerErr := strings.ToLower(errStr)

	if strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "deadline exceeded") ||
		strings.Contains(lowerErr, "context canceled") {
		return NewClientError(
			ErrorCodeTimeout,
			"Request timed out",
			err,
			false,
		)
	}

	if strings.Contains(lowerErr, "malformed http response") ||
		strings.Contains(lowerErr, "first record does not look like a tls handshake") {
		return NewClientError(
			ErrorCodeHTTPSRequired,
			"Protocol mismatch - try using HTTPS instead of HTTP",
			err,
			true,
		)
	}

	if strings.Contains(lowerErr, "certificate") ||
		strings.Contains(lowerErr, "x509") ||
		strings.Contains(lowerErr, "tls") ||
		strings.Contains(lowerErr, "ssl") {
		return NewClientError(
			ErrorCodeSSLError,
			"SSL/TLS connection failed - check certificate configuration",
			err,
			true,
		)
	}

	if strings.Contains(lowerErr, "connection refused") {
		return NewClientError(
			ErrorCodeConnectionRefused,
			"Connection refused - daemon may be down",
			err,
			false,
		)
	}

	if strings.Contains(lowerErr, "no such host") ||
		strings.Contains(lowerErr, "lookup") ||
		strings.Contains(lowerErr, "dns") {
		return NewClientError(
			ErrorCodeDNS,
			"DNS resolution failed - check hostname",
			err,
			true,
		)
	}

	// Transmission answers 401 with an "Unauthorized User" page
	if strings.Contains(lowerErr, "unauthorized") ||
		strings.Contains(lowerErr, "authentication failed") ||
		strings.Contains(lowerErr, "invalid credentials") {
		return NewClientError(
			ErrorCodeAuthFailure,
			"Invalid username or password",
			err,
			true,
		)
	}

	return NewClientError(
		ErrorCodeUnknown,
		"Unknown error occurred",
		err,
		false,
	)
}

// classifyHTTPStatusCode classifies an HTTP status code into a ClientError
func classifyHTTPStatusCode(statusCode int, body string) *ClientError {
	var e *ClientError
	switch statusCode {
	case 401, 403:
		e = NewClientError(
			ErrorCodeAuthFailure,
			fmt.Sprintf("Authentication failed with status %d", statusCode),
			nil,
			true,
		)
	case 502:
		e = NewClientError(
			ErrorCodeBadGateway,
			fmt.Sprintf("Bad Gateway (502): %s", body),
			nil,
			false,
		)
	case 503:
		e = NewClientError(
			ErrorCodeServiceUnavailable,
			fmt.Sprintf("Service Unavailable (503): %s", body),
			nil,
			false,
		)
	case 504:
		e = NewClientError(
			ErrorCodeTimeout,
			fmt.Sprintf("Gateway Timeout (504): %s", body),
			nil,
			false,
		)
	default:
		e = NewClientError(
			ErrorCodeHTTPStatus,
			fmt.Sprintf("Request failed with status %d: %s", statusCode, body),
			nil,
			statusCode >= 400 && statusCode < 500,
		)
	}
	e.StatusCode = statusCode
	return e
}

// IsRetryableError returns true if the error is temporary and can be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return !ClassifyError(err).Permanent
}

// IsPermanentError returns true if the error requires user intervention
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Permanent
}

// IsTimeout reports whether err is a timed out transport call.
func IsTimeout(err error) bool {
	return GetErrorCode(err) == ErrorCodeTimeout
}

// IsTransportError reports whether err is a connectivity or HTTP-level failure.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsTransport()
}

// ServerMessage returns the daemon's result string when err is a server-reported failure.
func ServerMessage(err error) (string, bool) {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Code == ErrorCodeServer {
		return clientErr.Message, true
	}
	return "", false
}

// IsTorrentNotFound reports whether err means the torrent does not exist on the daemon.
func IsTorrentNotFound(err error) bool {
	return GetErrorCode(err) == ErrorCodeTorrentNotFound
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ErrorCodeNone
	}
	return ClassifyError(err).Code
}
