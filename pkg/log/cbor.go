package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Capture files are read back by the log commands, often from other
// machines, so decoding is bounded. An Event is a map of at most a dozen keys
// holding one payload struct; frame bytes are a single byte string capped
// at MaxFrameDataSize.
const (
	maxEventNesting = 8
	maxEventKeys    = 32
	maxRecordSize   = 2 * MaxFrameDataSize
)

var captureEnc, captureDec = captureModes()

func captureModes() (cbor.EncMode, cbor.DecMode) {
	// Sorted integer keys and RFC 3339 timestamps make two captures of
	// the same exchange byte-identical apart from times and IDs.
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: capture encoder: %v", err))
	}

	// Unknown keys from newer capture versions are skipped.
	dec, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxNestedLevels:  maxEventNesting,
		MaxMapPairs:      maxEventKeys,
		MaxArrayElements: maxEventKeys,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: capture decoder: %v", err))
	}
	return enc, dec
}

// EncodeEvent encodes one capture record.
func EncodeEvent(event Event) ([]byte, error) {
	return captureEnc.Marshal(event)
}

// DecodeEvent decodes one capture record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if len(data) > maxRecordSize {
		return Event{}, fmt.Errorf("log: record of %d bytes exceeds %d", len(data), maxRecordSize)
	}
	if err := captureDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns a streaming capture encoder writing to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return captureEnc.NewEncoder(w)
}

// NewDecoder returns a streaming capture decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return captureDec.NewDecoder(r)
}
