package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ID identifies a board entity. It is either Temporary (generated locally for
// an optimistic create) or Confirmed (assigned by the remote store). The zero
// value is neither and reports IsZero.
type ID struct {
	value     string
	temporary bool
}

// NewTemporaryID returns a fresh locally generated identifier.
func NewTemporaryID() ID {
	return ID{value: "tmp_" + uuid.NewString(), temporary: true}
}

// ConfirmedID wraps a server-assigned identifier. An empty string yields the zero ID.
func ConfirmedID(serverID string) ID {
	if serverID == "" {
		return ID{}
	}
	return ID{value: serverID}
}

func (id ID) IsTemporary() bool { return id.temporary }
func (id ID) IsConfirmed() bool { return !id.temporary && id.value != "" }
func (id ID) IsZero() bool      { return id.value == "" }
func (id ID) String() string    { return id.value }

// MarshalJSON encodes the ID as its plain string value.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes a string as a Confirmed ID. Anything arriving over the
// wire was assigned by the server.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ConfirmedID(s)
	return nil
}
