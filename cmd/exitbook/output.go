package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jbelanger/exitbook/internal/platform/apperr"
)

// Exit codes per spec §6.
const (
	exitSuccess        = 0
	exitGeneral        = 1
	exitInvalidArgs    = 2
	exitAuthentication = 3
	exitNotFound       = 4
	exitRateLimited    = 5
)

// envelope is the JSON output shape every command emits.
type envelope struct {
	Success   bool           `json:"success"`
	Command   string         `json:"command"`
	Timestamp string         `json:"timestamp"`
	Data      any            `json:"data,omitempty"`
	Error     *envelopeError `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func emitSuccess(command string, started time.Time, data any, extraMetadata map[string]any) {
	meta := map[string]any{"duration_ms": time.Since(started).Milliseconds()}
	for k, v := range extraMetadata {
		meta[k] = v
	}
	env := envelope{
		Success:   true,
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
		Metadata:  meta,
	}
	printEnvelope(env)
}

// emitError prints the error envelope and returns the exit code the
// caller should os.Exit with.
func emitError(command string, started time.Time, err error) int {
	code := "internal"
	exit := exitGeneral
	if appErr, ok := apperr.As(err); ok {
		code = string(appErr.Code)
		exit = exitCodeFor(appErr.Code)
	}
	env := envelope{
		Success:   false,
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     &envelopeError{Code: code, Message: err.Error()},
		Metadata:  map[string]any{"duration_ms": time.Since(started).Milliseconds()},
	}
	printEnvelope(env)
	return exit
}

func exitCodeFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return exitInvalidArgs
	case apperr.CodeAuthentication:
		return exitAuthentication
	case apperr.CodeNotFound:
		return exitNotFound
	case apperr.CodeRateLimited:
		return exitRateLimited
	default:
		return exitGeneral
	}
}

func printEnvelope(env envelope) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		fmt.Fprintf(os.Stderr, "exitbook: encoding output: %v\n", err)
	}
}
