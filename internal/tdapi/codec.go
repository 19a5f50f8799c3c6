package tdapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingType is returned for objects without an "@type" field.
	ErrMissingType = errors.New("tdapi: object has no @type")
	// ErrUnknownType is returned for authorization states this package does not know.
	ErrUnknownType = errors.New("tdapi: unknown @type")
)

type envelope struct {
	Type  string `json:"@type"`
	Extra string `json:"@extra,omitempty"`
}

// Encode renders fn as a tdjson request, tagged with extra so its response can be routed back.
func Encode(fn Function, extra string) ([]byte, error) {
	body, err := json.Marshal(fn)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", fn.Type(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", fn.Type(), err)
	}
	fields["@type"], _ = json.Marshal(fn.Type())
	if extra != "" {
		fields["@extra"], _ = json.Marshal(extra)
	}
	if p, ok := fn.(*SetTdlibParameters); ok && p.Parameters != nil {
		params, err := json.Marshal(p.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", fn.Type(), err)
		}
		fields["parameters"] = withType(params, "tdlibParameters")
	}
	return json.Marshal(fields)
}

func withType(obj json.RawMessage, typ string) json.RawMessage {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(obj, &fields); err != nil {
		return obj
	}
	fields["@type"], _ = json.Marshal(typ)
	out, err := json.Marshal(fields)
	if err != nil {
		return obj
	}
	return out
}

// Decode parses one object received from the engine and returns it with its "@extra" tag.
// Types outside this package's vocabulary come back as *Unknown.
func Decode(data []byte) (Object, string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("decode object: %w", err)
	}
	if env.Type == "" {
		return nil, env.Extra, ErrMissingType
	}

	switch env.Type {
	case TypeError:
		var e Error
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, env.Extra, fmt.Errorf("decode error: %w", err)
		}
		return &e, env.Extra, nil
	case TypeOk:
		return &Ok{}, env.Extra, nil
	case TypeUpdateAuthorizationState:
		var raw struct {
			State json.RawMessage `json:"authorization_state"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, env.Extra, fmt.Errorf("decode update: %w", err)
		}
		st, err := DecodeState(raw.State)
		if err != nil {
			return nil, env.Extra, err
		}
		return &UpdateAuthorizationState{AuthorizationState: st}, env.Extra, nil
	}

	if st, err := DecodeState(data); err == nil {
		return st, env.Extra, nil
	} else if !errors.Is(err, ErrUnknownType) {
		return nil, env.Extra, err
	}
	return &Unknown{TypeName: env.Type, Raw: append([]byte(nil), data...)}, env.Extra, nil
}

// DecodeState parses an authorization state object.
func DecodeState(data []byte) (AuthorizationState, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}

	var st AuthorizationState
	switch env.Type {
	case TypeAuthorizationStateWaitTdlibParameters:
		st = &AuthorizationStateWaitTdlibParameters{}
	case TypeAuthorizationStateWaitEncryptionKey:
		st = &AuthorizationStateWaitEncryptionKey{}
	case TypeAuthorizationStateWaitPhoneNumber:
		st = &AuthorizationStateWaitPhoneNumber{}
	case TypeAuthorizationStateWaitOtherDeviceConfirmation:
		st = &AuthorizationStateWaitOtherDeviceConfirmation{}
	case TypeAuthorizationStateWaitRegistration:
		st = &AuthorizationStateWaitRegistration{}
	case TypeAuthorizationStateWaitCode:
		st = &AuthorizationStateWaitCode{}
	case TypeAuthorizationStateWaitPassword:
		st = &AuthorizationStateWaitPassword{}
	case TypeAuthorizationStateReady:
		st = &AuthorizationStateReady{}
	case TypeAuthorizationStateLoggingOut:
		st = &AuthorizationStateLoggingOut{}
	case TypeAuthorizationStateClosing:
		st = &AuthorizationStateClosing{}
	case TypeAuthorizationStateClosed:
		st = &AuthorizationStateClosed{}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, env.Type)
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return st, nil
}
