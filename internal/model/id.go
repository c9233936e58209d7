package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID 行主键。后端既可能用 uuid（字符串）也可能用 bigint（数字），统一按字符串保存。
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("model: id must be string or number: %s", b)
	}
	*id = ID(n.String())
	return nil
}
