package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	defaultFailureMessage = "API request failed"
	networkErrorMessage   = "Network error occurred"
)

// Envelope is the uniform result of every call made through this package.
// A successful envelope carries no errors and an unsuccessful one carries no data.
type Envelope[T any] struct {
	Success bool     `json:"success"`
	Data    T        `json:"data"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Void is the payload type of envelopes that only carry a message.
type Void struct{}

func (*Void) UnmarshalJSON([]byte) error { return nil }

func Ok[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Success: true, Data: data, Message: message}
}

func Fail[T any](message string, errs ...string) Envelope[T] {
	if message == "" {
		message = defaultFailureMessage
	}
	return Envelope[T]{Success: false, Message: message, Errors: errs}
}

// NetworkFailure is the envelope produced for anything that prevented a response
// from being read: DNS failures, aborted or timed out calls, undecodable payloads.
func NetworkFailure[T any](err error) Envelope[T] {
	var errs []string
	if err != nil {
		errs = []string{err.Error()}
	}
	return Envelope[T]{Success: false, Message: networkErrorMessage, Errors: errs}
}

// Err maps an unsuccessful envelope to an error wrapping ErrNetwork or
// ErrRequestFailed. It returns nil for successful envelopes.
func (e Envelope[T]) Err() error {
	if e.Success {
		return nil
	}
	sentinel := ErrRequestFailed
	if e.Message == networkErrorMessage {
		sentinel = ErrNetwork
	}
	message := e.Message
	if message == "" {
		message = defaultFailureMessage
	}
	if len(e.Errors) > 0 {
		return fmt.Errorf("%w: %s (%s)", sentinel, message, strings.Join(e.Errors, "; "))
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

// Decode converts a raw envelope into a typed one. A payload that does not fit T
// is reported the same way as a transport failure.
func Decode[T any](raw Envelope[json.RawMessage]) Envelope[T] {
	out := Envelope[T]{Success: raw.Success, Message: raw.Message, Errors: raw.Errors}
	if !raw.Success {
		return out
	}
	out.Errors = nil
	trimmed := bytes.TrimSpace(raw.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out
	}
	if err := json.Unmarshal(trimmed, &out.Data); err != nil {
		return NetworkFailure[T](fmt.Errorf("decode response: %w", err))
	}
	return out
}

// Normalize applies the response rules shared by the live and mock transports:
// a body that is empty or not JSON counts as {}, a non-2xx status produces a
// failure built from message/Message/errors, and a 2xx status produces the
// "data" member or, when the body has no such member, the whole body. An
// explicit "data": null stays null; lookups answer a miss that way.
func Normalize(status int, body []byte) Envelope[json.RawMessage] {
	fields := map[string]json.RawMessage{}
	trimmed := bytes.TrimSpace(body)
	isObject := len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &fields) == nil
	if !isObject {
		fields = map[string]json.RawMessage{}
	}
	message := messageOf(fields)

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		if message == "" {
			message = defaultFailureMessage
		}
		return Envelope[json.RawMessage]{
			Success: false,
			Message: message,
			Errors:  errorsOf(fields["errors"]),
		}
	}

	data, ok := fields["data"]
	if !ok {
		data = json.RawMessage("{}")
		if len(trimmed) > 0 && json.Valid(trimmed) {
			data = json.RawMessage(trimmed)
		}
	}
	return Envelope[json.RawMessage]{Success: true, Data: data, Message: message}
}

func messageOf(fields map[string]json.RawMessage) string {
	for _, key := range []string{"message", "Message"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil && text != "" {
			return text
		}
	}
	return ""
}

// errorsOf flattens the shapes servers use for error details: a list of
// strings, a single string, or a field -> messages map from validation layers.
func errorsOf(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, textOf(item))
		}
		return out
	}

	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		return []string{single}
	}

	var byField map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &byField); err == nil {
		keys := make([]string, 0, len(byField))
		for key := range byField {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var out []string
		for _, key := range keys {
			for _, msg := range errorsOf(byField[key]) {
				out = append(out, key+": "+msg)
			}
		}
		return out
	}

	return []string{string(trimmed)}
}

func textOf(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(bytes.TrimSpace(raw))
}
