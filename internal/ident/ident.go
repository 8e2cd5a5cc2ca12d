// AngelaMos | 2026
// ident.go

// Package ident models entity identifiers that come from either store.
// Rows owned by the relational store have a numeric id; documents that only
// exist in the document store are addressed by their ObjectID hex.
package ident

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

const mirrorPrefix = "m:"

type ID struct {
	num int64
	ext string
}

func Primary(n int64) ID {
	return ID{num: n}
}

func Mirror(hex string) ID {
	return ID{ext: hex}
}

// Of picks the primary id when the row has one, otherwise the mirror id.
func Of(primaryID int64, mirrorID string) ID {
	if primaryID != 0 {
		return Primary(primaryID)
	}
	return Mirror(mirrorID)
}

func (id ID) IsZero() bool {
	return id.num == 0 && id.ext == ""
}

func (id ID) IsPrimary() bool {
	return id.num != 0
}

func (id ID) IsMirror() bool {
	return id.num == 0 && id.ext != ""
}

// PrimaryID returns the numeric id and whether the id is a primary one.
func (id ID) PrimaryID() (int64, bool) {
	return id.num, id.num != 0
}

// MirrorID returns the ObjectID hex and whether the id is a mirror one.
func (id ID) MirrorID() (string, bool) {
	return id.ext, id.IsMirror()
}

func (id ID) String() string {
	switch {
	case id.IsPrimary():
		return strconv.FormatInt(id.num, 10)
	case id.IsMirror():
		return mirrorPrefix + id.ext
	default:
		return ""
	}
}

func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)

	if hex, ok := strings.CutPrefix(s, mirrorPrefix); ok {
		if !isHex(hex) {
			return ID{}, fmt.Errorf("parse id %q: %w", s, core.ErrInvalidInput)
		}
		return Mirror(hex), nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return ID{}, fmt.Errorf("parse id %q: %w", s, core.ErrInvalidInput)
	}

	return Primary(n), nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id.IsPrimary():
		return []byte(strconv.FormatInt(id.num, 10)), nil
	case id.IsMirror():
		return json.Marshal(mirrorPrefix + id.ext)
	default:
		return []byte("null"), nil
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", core.ErrInvalidInput)
	}
	if n <= 0 {
		return fmt.Errorf("decode id %d: %w", n, core.ErrInvalidInput)
	}

	*id = Primary(n)
	return nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
