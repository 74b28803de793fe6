package core

import (
	"encoding/hex"
	"encoding/json"
	"time"
)

// recordJSON is the wire form of a PacketRecord.
type recordJSON struct {
	Source     string      `json:"source"`
	Origin     HandleToken `json:"origin"`
	CapturedAt string      `json:"captured_at"`
	Length     int         `json:"length"`
	Layout     string      `json:"layout,omitempty"`
	Fields     []Field     `json:"fields,omitempty"`
	PayloadHex string      `json:"payload_hex"`
}

// MarshalJSON encodes the record with its payload as lowercase hex.
func (r PacketRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Source:     r.Source,
		Origin:     r.Origin,
		CapturedAt: r.Snapshot.CapturedAt().UTC().Format(time.RFC3339Nano),
		Length:     r.Snapshot.Len(),
		Layout:     r.Layout,
		Fields:     r.Fields,
	}
	r.Snapshot.View(func(data []byte) {
		out.PayloadHex = hex.EncodeToString(data)
	})
	return json.Marshal(out)
}
