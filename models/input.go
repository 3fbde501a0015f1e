package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// FlexID accepts a JSON string or number and keeps its canonical string form.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("identifier must be a string or a number")
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string {
	return strings.TrimSpace(string(f))
}

// IDList is a list of player ids from a request body. A missing or null list decodes to nil.
type IDList []FlexID

func (l *IDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) == 0 || data[0] != '[' {
		return errors.New("players must be a list")
	}
	var ids []FlexID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*l = ids
	return nil
}

// Strings returns the ids in canonical string form, order preserved.
func (l IDList) Strings() []string {
	out := make([]string, len(l))
	for i, id := range l {
		out[i] = id.String()
	}
	return out
}

// LineupEntry is one unvalidated composition slot as submitted by a client.
type LineupEntry struct {
	PlayerID FlexID      `json:"player_id"`
	Position json.Number `json:"position"`
}
