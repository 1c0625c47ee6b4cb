package api

import (
	"pos/config"
)

// SafeErrorMessage hides internal error details from clients in release mode
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}

// failureMessage "<action>: <detail>", detail hidden in release mode
func failureMessage(action string, err error) string {
	return action + ": " + SafeErrorMessage(err, "internal error")
}
