package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ID is a backend identifier. The backend issues numeric ids but the client
// treats them as opaque strings.
type ID string

var ErrInvalidID = errors.New("invalid_id")

// ParseID converts a caller-supplied identifier. Only non-empty strings and
// integer values are accepted.
func ParseID(value any) (ID, error) {
	var id ID
	switch v := value.(type) {
	case nil:
		return "", ErrInvalidID
	case ID:
		id = v
	case string:
		id = ID(v)
	case json.Number:
		if _, err := v.Int64(); err != nil {
			return "", ErrInvalidID
		}
		id = ID(v.String())
	case int:
		id = ID(strconv.FormatInt(int64(v), 10))
	case int32:
		id = ID(strconv.FormatInt(int64(v), 10))
	case int64:
		id = ID(strconv.FormatInt(v, 10))
	case uint:
		id = ID(strconv.FormatUint(uint64(v), 10))
	case uint32:
		id = ID(strconv.FormatUint(uint64(v), 10))
	case uint64:
		id = ID(strconv.FormatUint(v, 10))
	default:
		return "", ErrInvalidID
	}
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Validate rejects identifiers that cannot be placed in a request path.
func (id ID) Validate() error {
	value := strings.TrimSpace(string(id))
	if value == "" || value == "." || value == ".." {
		return ErrInvalidID
	}
	return nil
}

// numeric reports whether the id is a canonical int64, the only form written
// as a bare JSON number.
func (id ID) numeric() bool {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}
