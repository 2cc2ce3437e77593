package codes

// ErrorCodes maps GNU/clang driver exit codes to their descriptions
var ErrorCodes = map[int]string{
	0:   "Success",
	1:   "Compilation or link errors",
	2:   "Driver usage error",
	4:   "Internal compiler error",
	70:  "Internal software error",
	124: "Command timed out",
	126: "Compiler found but not executable",
	127: "Compiler not found on PATH",
}

// IsSuccess returns true if the exit code indicates successful compilation
func IsSuccess(code int) bool {
	return code == 0
}

// GetErrorMessage returns the error message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}
