package profile

import (
	"fmt"
	"time"

	"howett.net/plist"

	"profiledeck/internal/logging"
)

// Property-list keys read from the payload.
const (
	KeyUUID                 = "UUID"
	KeyName                 = "Name"
	KeyTeamName             = "TeamName"
	KeyCreationDate         = "CreationDate"
	KeyExpirationDate       = "ExpirationDate"
	KeyTeamIdentifier       = "TeamIdentifier"
	KeyAppIDName            = "AppIDName"
	KeyPlatform             = "Platform"
	KeyProvisionedDevices   = "ProvisionedDevices"
	KeyProvisionsAllDevices = "ProvisionsAllDevices"
)

// Extract parses payload as a property-list dictionary and builds a Record
// for sourcePath. UUID, Name and both dates are required. TeamName may be
// absent, a string, or a list of strings (first element wins).
func Extract(sourcePath string, payload []byte) (Record, error) {
	dict, err := decodeDict(payload)
	if err != nil {
		return Record{}, err
	}
	return FromDict(sourcePath, dict)
}

// FromDict builds a Record from an already-decoded payload dictionary.
func FromDict(sourcePath string, dict map[string]interface{}) (Record, error) {
	rec := Record{SourcePath: sourcePath}
	var err error

	if rec.UUID, err = requireString(dict, KeyUUID); err != nil {
		return Record{}, err
	}
	if rec.UUID == "" {
		return Record{}, &ExtractionError{Kind: KindMissingKey, Key: KeyUUID, Err: fmt.Errorf("empty value")}
	}
	if rec.Name, err = requireString(dict, KeyName); err != nil {
		return Record{}, err
	}
	if rec.TeamName, err = teamName(dict); err != nil {
		return Record{}, err
	}
	if rec.CreatedAt, err = requireDate(dict, KeyCreationDate); err != nil {
		return Record{}, err
	}
	if rec.ExpiresAt, err = requireDate(dict, KeyExpirationDate); err != nil {
		return Record{}, err
	}

	fillOptional(&rec, dict)
	return rec, nil
}

// DecodePayload returns the payload as a generic dictionary, e.g. for the
// `show --plist` preview.
func DecodePayload(payload []byte) (map[string]interface{}, error) {
	return decodeDict(payload)
}

func decodeDict(payload []byte) (map[string]interface{}, error) {
	if len(payload) == 0 {
		return nil, &ExtractionError{Kind: KindInvalidPayload, Err: fmt.Errorf("empty payload")}
	}
	var v interface{}
	if _, err := plist.Unmarshal(payload, &v); err != nil {
		return nil, &ExtractionError{Kind: KindInvalidPayload, Err: err}
	}
	dict, ok := v.(map[string]interface{})
	if !ok {
		return nil, &ExtractionError{Kind: KindInvalidPayload, Err: fmt.Errorf("top level is %T, want dictionary", v)}
	}
	return dict, nil
}

func requireString(dict map[string]interface{}, key string) (string, error) {
	v, ok := dict[key]
	if !ok {
		return "", &ExtractionError{Kind: KindMissingKey, Key: key}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ExtractionError{Kind: KindWrongType, Key: key, Err: fmt.Errorf("got %T, want string", v)}
	}
	return s, nil
}

func requireDate(dict map[string]interface{}, key string) (time.Time, error) {
	v, ok := dict[key]
	if !ok {
		return time.Time{}, &ExtractionError{Kind: KindMissingKey, Key: key}
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, &ExtractionError{Kind: KindWrongType, Key: key, Err: fmt.Errorf("got %T, want date", v)}
	}
	return t, nil
}

func teamName(dict map[string]interface{}) (string, error) {
	v, ok := dict[KeyTeamName]
	if !ok {
		return "", nil
	}
	switch tv := v.(type) {
	case string:
		return tv, nil
	case []interface{}:
		if len(tv) == 0 {
			return "", nil
		}
		s, ok := tv[0].(string)
		if !ok {
			return "", &ExtractionError{Kind: KindWrongType, Key: KeyTeamName, Err: fmt.Errorf("element is %T, want string", tv[0])}
		}
		return s, nil
	default:
		return "", &ExtractionError{Kind: KindWrongType, Key: KeyTeamName, Err: fmt.Errorf("got %T, want string or array", v)}
	}
}

// fillOptional copies the informational keys. A wrong type here is logged
// and ignored.
func fillOptional(rec *Record, dict map[string]interface{}) {
	mistyped := func(key string, v interface{}) {
		logging.DecodeDebug("%s: ignoring %s of type %T", rec.SourcePath, key, v)
	}

	if v, ok := dict[KeyTeamIdentifier]; ok {
		if ids := stringList(v); len(ids) > 0 {
			rec.TeamID = ids[0]
		} else if ids == nil {
			mistyped(KeyTeamIdentifier, v)
		}
	}
	if v, ok := dict[KeyAppIDName]; ok {
		if s, ok := v.(string); ok {
			rec.AppIDName = s
		} else {
			mistyped(KeyAppIDName, v)
		}
	}
	if v, ok := dict[KeyPlatform]; ok {
		if p := stringList(v); p != nil {
			if len(p) > 0 {
				rec.Platforms = p
			}
		} else {
			mistyped(KeyPlatform, v)
		}
	}
	if v, ok := dict[KeyProvisionedDevices]; ok {
		if devices, ok := v.([]interface{}); ok {
			rec.DeviceCount = len(devices)
		} else {
			mistyped(KeyProvisionedDevices, v)
		}
	}
	if v, ok := dict[KeyProvisionsAllDevices]; ok {
		if b, ok := v.(bool); ok {
			rec.ProvisionsAllDevices = b
		} else {
			mistyped(KeyProvisionsAllDevices, v)
		}
	}
}

// stringList returns nil when v is not an array of strings, and an empty
// non-nil slice for an empty array.
func stringList(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}
