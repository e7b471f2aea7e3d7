package frame

import "fmt"

// ErrorCode is the four-byte code carried by an ERROR response body.
type ErrorCode uint32

const (
	ErrorServerError      ErrorCode = 0x0000
	ErrorProtocolError    ErrorCode = 0x000A
	ErrorBadCredentials   ErrorCode = 0x0100
	ErrorUnavailable      ErrorCode = 0x1000
	ErrorOverloaded       ErrorCode = 0x1001
	ErrorIsBootstrapping  ErrorCode = 0x1002
	ErrorTruncateError    ErrorCode = 0x1003
	ErrorWriteTimeout     ErrorCode = 0x1100
	ErrorReadTimeout      ErrorCode = 0x1200
	ErrorReadFailure      ErrorCode = 0x1300
	ErrorFunctionFailure  ErrorCode = 0x1400
	ErrorWriteFailure     ErrorCode = 0x1500
	ErrorSyntaxError      ErrorCode = 0x2000
	ErrorUnauthorized     ErrorCode = 0x2100
	ErrorInvalid          ErrorCode = 0x2200
	ErrorConfigError      ErrorCode = 0x2300
	ErrorAlreadyExists    ErrorCode = 0x2400
	ErrorUnprepared       ErrorCode = 0x2500
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorServerError:
		return "SERVER_ERROR"
	case ErrorProtocolError:
		return "PROTOCOL_ERROR"
	case ErrorBadCredentials:
		return "BAD_CREDENTIALS"
	case ErrorUnavailable:
		return "UNAVAILABLE"
	case ErrorOverloaded:
		return "OVERLOADED"
	case ErrorIsBootstrapping:
		return "IS_BOOTSTRAPPING"
	case ErrorTruncateError:
		return "TRUNCATE_ERROR"
	case ErrorWriteTimeout:
		return "WRITE_TIMEOUT"
	case ErrorReadTimeout:
		return "READ_TIMEOUT"
	case ErrorReadFailure:
		return "READ_FAILURE"
	case ErrorFunctionFailure:
		return "FUNCTION_FAILURE"
	case ErrorWriteFailure:
		return "WRITE_FAILURE"
	case ErrorSyntaxError:
		return "SYNTAX_ERROR"
	case ErrorUnauthorized:
		return "UNAUTHORIZED"
	case ErrorInvalid:
		return "INVALID"
	case ErrorConfigError:
		return "CONFIG_ERROR"
	case ErrorAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrorUnprepared:
		return "UNPREPARED"
	default:
		return fmt.Sprintf("ErrorCode(0x%04X)", uint32(c))
	}
}
