// Package settings persists the studio's control values between runs.
// Each page owns one flat JSON record stored under a fixed key; the
// record is read once at startup and overwritten on every (debounced) save.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/ttstudio/internal/ttypes"
)

// Storage keys for the two studio pages.
const (
	EdgeKey  = "edgeTtsSettings"
	AzureKey = "azureTtsSettings"
)

// Record is the flat parameter set of one studio page. Pointer fields are
// optional: nil means "absent", so the control keeps its default.
type Record struct {
	APIKey       string  `json:"apiKey,omitempty"`
	Region       string  `json:"region,omitempty"`
	Voice        string  `json:"voice,omitempty"`
	Style        string  `json:"style,omitempty"`
	Rate         *int    `json:"rate,omitempty"`
	Pitch        *int    `json:"pitch,omitempty"`
	Volume       *int    `json:"volume,omitempty"`
	Format       string  `json:"format,omitempty"`
	Text         string  `json:"text,omitempty"`
	PlaybackRate float64 `json:"playbackRate,omitempty"`
}

// Int returns a pointer to v, for filling optional Record fields.
func Int(v int) *int {
	return &v
}

// IntOr dereferences p, falling back to def when the field is absent.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.Rate != nil {
		c.Rate = Int(*r.Rate)
	}
	if r.Pitch != nil {
		c.Pitch = Int(*r.Pitch)
	}
	if r.Volume != nil {
		c.Volume = Int(*r.Volume)
	}
	return c
}

// IsEmpty reports whether no field is present.
func (r Record) IsEmpty() bool {
	return r.APIKey == "" && r.Region == "" && r.Voice == "" && r.Style == "" &&
		r.Rate == nil && r.Pitch == nil && r.Volume == nil &&
		r.Format == "" && r.Text == "" && r.PlaybackRate == 0
}

// Marshal encodes the record as stored on disk.
func (r Record) Marshal() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("unable to encode settings: %w", err)
	}
	return b, nil
}

// UnmarshalJSON accepts the sliders as numbers or numeric strings, the way
// the web pages store them.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var raw struct {
		plain
		Rate   *ttypes.LooseInt `json:"rate,omitempty"`
		Pitch  *ttypes.LooseInt `json:"pitch,omitempty"`
		Volume *ttypes.LooseInt `json:"volume,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.plain)
	r.Rate = looseInt(raw.Rate)
	r.Pitch = looseInt(raw.Pitch)
	r.Volume = looseInt(raw.Volume)
	return nil
}

func looseInt(n *ttypes.LooseInt) *int {
	if n == nil {
		return nil
	}
	return Int(int(*n))
}

// Unmarshal decodes a stored record. A JSON null decodes to the empty record.
func Unmarshal(data []byte) (Record, error) {
	var r *Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unable to decode settings: %w", err)
	}
	if r == nil {
		return Record{}, nil
	}
	return *r, nil
}
