package archive

import (
	"encoding/json"
	"fmt"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// ManifestName is the archive entry holding state and tags per region.
const ManifestName = "tags.json"

const rangeStopKey = "range_stop"

// Record is the manifest entry of one region.
type Record struct {
	State region.State
	Tags  []string
}

// Manifest maps region names to their records and carries the range stop of
// the session that wrote the archive.
//
// On the wire every region is a JSON array whose first element is the state
// name and whose remaining elements are tags:
//
//	{"range_stop": 4, "L1": ["ROI_STATE_ACTIVE"], "L3": ["ROI_STATE_DELETED", "small"]}
type Manifest struct {
	RangeStop int
	Records   map[string]Record
}

// MarshalJSON implements json.Marshaler.
func (m Manifest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Records)+1)
	out[rangeStopKey] = m.RangeStop
	for name, rec := range m.Records {
		out[name] = append([]string{rec.State.String()}, rec.Tags...)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. A record with no elements
// decodes as Active without tags; unknown state names decode as Active.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.RangeStop = 0
	m.Records = make(map[string]Record, len(raw))
	for key, val := range raw {
		if key == rangeStopKey {
			if err := json.Unmarshal(val, &m.RangeStop); err != nil {
				return fmt.Errorf("failed to parse %s: %w", rangeStopKey, err)
			}
			continue
		}
		var fields []string
		if err := json.Unmarshal(val, &fields); err != nil {
			return fmt.Errorf("failed to parse record %s: %w", key, err)
		}
		rec := Record{State: region.Active}
		if len(fields) > 0 {
			rec.State = region.ParseState(fields[0])
			rec.Tags = fields[1:]
		}
		m.Records[key] = rec
	}
	return nil
}
