package configstore

import (
	"encoding/json"
	"fmt"
	"maps"
)

// MaskedToken replaces the auth token in operator-visible reports.
const MaskedToken = "********"

// Identity is the provisioned device identity and auth record.
type Identity struct {
	Org        string
	DeviceType string
	DeviceID   string
	Token      string
}

// ClientID returns the session client id, "d:<org>:<devType>:<devId>".
func (i Identity) ClientID() string {
	return fmt.Sprintf("d:%s:%s:%s", i.Org, i.DeviceType, i.DeviceID)
}

// Complete reports whether every identity field is set.
func (i Identity) Complete() bool {
	return i.Org != "" && i.DeviceType != "" && i.DeviceID != "" && i.Token != ""
}

// Metadata is the device's free-form JSON object.
type Metadata map[string]any

// Clone returns a shallow copy. Nested values are shared, which is safe
// because metadata is only ever replaced, never edited in place.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// Snapshot is the full configuration as reported to the operator.
type Snapshot struct {
	Org        string   `json:"org"`
	DeviceType string   `json:"devType"`
	DeviceID   string   `json:"devId"`
	Token      string   `json:"token"`
	Meta       Metadata `json:"meta"`
}

// asMetadata converts a decoded JSON value to Metadata.
func asMetadata(value any) (Metadata, error) {
	switch v := value.(type) {
	case nil:
		return Metadata{}, nil
	case Metadata:
		return v.Clone(), nil
	case map[string]any:
		return Metadata(v).Clone(), nil
	case json.RawMessage:
		var m Metadata
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, ErrInvalidMetadata
		}
		return m.Clone(), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidMetadata, value)
	}
}
