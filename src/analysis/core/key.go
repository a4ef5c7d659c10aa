package core

import "fmt"

// -----------------------------------------------------------------------------

// Field identifies which quote field of a security an accumulator tracks.
type Field uint8

const (
	FieldBid Field = iota
	FieldMid
	FieldAsk
)

// Fields lists all tracked fields in processing order.
var Fields = []Field{FieldBid, FieldMid, FieldAsk}

// -----------------------------------------------------------------------------

func (f Field) String() string {
	switch f {
	case FieldBid:
		return "bid"
	case FieldMid:
		return "mid"
	case FieldAsk:
		return "ask"
	}
	return fmt.Sprintf("field(%d)", uint8(f))
}

// -----------------------------------------------------------------------------

// ParseField converts a stored field name back to a Field.
func ParseField(s string) (Field, error) {
	switch s {
	case "bid":
		return FieldBid, nil
	case "mid":
		return FieldMid, nil
	case "ask":
		return FieldAsk, nil
	}
	return 0, fmt.Errorf("unknown field name: '%s'", s)
}

// -----------------------------------------------------------------------------

// Key identifies one accumulator: a security and one of its quote fields.
// Using a struct key avoids collisions that a joined string key would allow
// when security identifiers contain the separator.
type Key struct {
	SecurityID string
	Field      Field
}

func (k Key) String() string {
	return k.SecurityID + "/" + k.Field.String()
}
