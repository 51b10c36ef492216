package log

import (
	"errors"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/afero"
)

// Filter specifies criteria for filtering log events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// ConnectionID filters by exact connection ID match.
	ConnectionID string

	// Direction filters by message direction.
	Direction *Direction

	// Layer filters by protocol layer.
	Layer *Layer

	// Category filters by event category.
	Category *Category

	// Path filters transport and command events by logical path.
	Path string

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time

	// DeviceName filters by device name.
	DeviceName string
}

func (f *Filter) matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Path != "" && eventPath(event) != f.Path {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	if f.DeviceName != "" && event.DeviceName != f.DeviceName {
		return false
	}
	return true
}

func eventPath(event Event) string {
	switch {
	case event.Frame != nil:
		return event.Frame.Path
	case event.Command != nil:
		return event.Command.Path
	}
	return ""
}

// Reader reads protocol log events from a CBOR-encoded stream.
type Reader struct {
	src     io.ReadCloser
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader creates a Reader that reads all events from the specified log file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(afero.NewOsFs(), path, Filter{})
}

// NewFilteredReader creates a Reader over a file in fs that returns only
// events matching filter.
func NewFilteredReader(fs afero.Fs, path string, filter Filter) (*Reader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		src:     f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next event that matches the filter.
// Returns io.EOF when no more events are available.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.src.Close()
}
