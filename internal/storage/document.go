package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"nyurban_tracker/internal/model"
)

// metadataKey is reserved in the state document and never names a slot.
const metadataKey = "_metadata"

const lastCheckField = "last_check_time"

// document is the JSON state layout shared by the file and Redis stores:
// one object keyed by slot identity plus a "_metadata" object.
type document struct {
	slots model.Snapshot
	meta  map[string]json.RawMessage
}

// decodeDocument parses a state document, keeping key order. Empty input
// is an empty document.
func decodeDocument(data []byte) (document, error) {
	var doc document
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return doc, fmt.Errorf("read state: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return doc, fmt.Errorf("state is not a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return doc, fmt.Errorf("read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return doc, fmt.Errorf("unexpected token %v", tok)
		}

		if key == metadataKey {
			if err := dec.Decode(&doc.meta); err != nil {
				return doc, fmt.Errorf("decode metadata: %w", err)
			}
			continue
		}

		var slot model.Slot
		if err := dec.Decode(&slot); err != nil {
			return doc, fmt.Errorf("decode slot %q: %w", key, err)
		}
		doc.slots.Put(key, slot)
	}

	tok, err = dec.Token()
	if err != nil {
		return doc, fmt.Errorf("read state end: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '}' {
		return doc, fmt.Errorf("unexpected token %v after state object", tok)
	}
	return doc, nil
}

// lastCheck returns the stored last check time, or 0.
func (d document) lastCheck() float64 {
	raw, ok := d.meta[lastCheckField]
	if !ok {
		return 0
	}
	var ts float64
	if err := json.Unmarshal(raw, &ts); err != nil {
		return 0
	}
	return ts
}

func (d document) state() model.State {
	return model.State{
		Slots: d.slots,
		Meta:  model.Metadata{LastCheckTime: d.lastCheck()},
	}
}

// stamp records ts as the last check time, keeping other metadata fields.
func (d *document) stamp(ts float64) {
	meta := make(map[string]json.RawMessage, len(d.meta)+1)
	for k, v := range d.meta {
		meta[k] = v
	}
	meta[lastCheckField] = json.RawMessage(strconv.FormatFloat(ts, 'f', -1, 64))
	d.meta = meta
}

// encode writes the document with two-space indentation, slots in order
// followed by the metadata object.
func (d document) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")

	first := true
	write := func(key string, v any) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		val, err := json.MarshalIndent(v, "  ", "  ")
		if err != nil {
			return fmt.Errorf("encode %q: %w", key, err)
		}
		if !first {
			buf.WriteString(",")
		}
		first = false
		buf.WriteString("\n  ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(val)
		return nil
	}

	for _, key := range d.slots.Keys() {
		slot, _ := d.slots.Get(key)
		if err := write(key, slot); err != nil {
			return nil, err
		}
	}
	if d.meta != nil {
		if err := write(metadataKey, d.meta); err != nil {
			return nil, err
		}
	}

	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

// replace builds the document written by Save: the new snapshot, the
// previous metadata and a fresh last check time.
func replace(previous []byte, slots model.Snapshot, ts float64) ([]byte, error) {
	old, err := decodeDocument(previous)
	if err != nil {
		old = document{}
	}
	doc := document{slots: slots, meta: old.meta}
	doc.stamp(ts)
	return doc.encode()
}
