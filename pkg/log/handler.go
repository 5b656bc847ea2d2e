package log

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// MarshalStack extracts the stack trace recorded by cockroachdb/errors.
// It is installed as zerolog.ErrorStackMarshaler by SetupLogger; errors
// without a recorded stack produce no field.
func MarshalStack(err error) interface{} {
	if st := extractStacktrace(err); st != "" {
		return st
	}
	return nil
}

func extractStacktrace(err error) string {
	if err == nil || errors.GetReportableStackTrace(err) == nil {
		return ""
	}
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		safeDetails := errors.GetSafeDetails(e).SafeDetails
		if len(safeDetails) > 0 && safeDetails[0] != "" {
			return safeDetails[0]
		}
	}
	return fmt.Sprintf("%+v", err)
}
