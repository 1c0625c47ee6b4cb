package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number a JSON number that may also arrive as a numeric string, as form
// inputs post it
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("empty number")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float64 plain value
func (n Number) Float64() float64 {
	return float64(n)
}

// LineRef id of a cart line: a numeric item id, or the register's
// "<item id>-<variant id>" composite
type LineRef struct {
	ItemID    uint
	VariantID uint
}

func (r *LineRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	} else {
		raw = string(b)
	}

	itemPart, variantPart, composite := strings.Cut(strings.TrimSpace(raw), "-")
	id, err := strconv.ParseUint(itemPart, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid line id %q", raw)
	}
	r.ItemID = uint(id)
	if composite {
		vid, err := strconv.ParseUint(variantPart, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid line id %q", raw)
		}
		r.VariantID = uint(vid)
	}
	return nil
}
