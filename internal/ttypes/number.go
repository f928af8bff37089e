package ttypes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// LooseInt decodes a JSON number or a numeric string such as "10". Slider
// values written by the web pages arrive as strings.
type LooseInt int

// UnmarshalJSON implements json.Unmarshaler. null and "" decode to 0.
func (n *LooseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", data, err)
		}
		data = bytes.TrimSpace([]byte(s))
		if len(data) == 0 {
			*n = 0
			return nil
		}
	}

	num := json.Number(data)
	if v, err := num.Int64(); err == nil {
		*n = LooseInt(v)
		return nil
	}
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid number %q", data)
	}
	*n = LooseInt(math.Round(f))
	return nil
}

// UnmarshalJSON accepts rate, pitch and volume as numbers or numeric strings.
func (p *Preset) UnmarshalJSON(data []byte) error {
	type plain Preset
	var raw struct {
		plain
		Rate   LooseInt `json:"rate"`
		Pitch  LooseInt `json:"pitch"`
		Volume LooseInt `json:"volume"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Preset(raw.plain)
	p.Rate = int(raw.Rate)
	p.Pitch = int(raw.Pitch)
	p.Volume = int(raw.Volume)
	return nil
}
