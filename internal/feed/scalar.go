package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Scalar holds a feed value that may arrive as a JSON string or number.
// Numbers are kept in their literal form.
type Scalar string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("feed: scalar %s: %w", data, err)
	}
	*s = Scalar(n.String())
	return nil
}

// Int parses the scalar as an integer, accepting 0x-prefixed hex.
func (s Scalar) Int() (int, error) {
	v := strings.TrimSpace(string(s))
	base := 10
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		v, base = v[2:], 16
	}
	n, err := strconv.ParseInt(v, base, 64)
	if err != nil {
		return 0, fmt.Errorf("feed: parse int %q: %w", string(s), err)
	}
	return int(n), nil
}
