package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Quantity is a plan value kept exactly as the model sent it. Models send
// the same field as 12, "12" or "8-12", so numbers keep their literal text and
// strings are kept verbatim. Numeric text is written back out as a number.
type Quantity string

// Float reports the numeric value, if the quantity is a plain number.
func (q Quantity) Float() (float64, bool) {
	if !q.numeric() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(q)), 64)
	return f, err == nil
}

func (q Quantity) numeric() bool {
	s := strings.TrimSpace(string(q))
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

func (q Quantity) String() string { return string(q) }

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity must be a number or a string, got %s", data)
	}
	*q = Quantity(n)
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	switch {
	case q == "":
		return []byte("null"), nil
	case q.numeric():
		return []byte(strings.TrimSpace(string(q))), nil
	}
	return json.Marshal(string(q))
}

// MarshalBSONValue stores numeric quantities as doubles so they stay queryable.
func (q Quantity) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if f, ok := q.Float(); ok {
		return bson.MarshalValue(f)
	}
	return bson.MarshalValue(string(q))
}

func (q *Quantity) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*q = ""
	case bsontype.String:
		*q = Quantity(raw.StringValue())
	case bsontype.Double:
		*q = Quantity(strconv.FormatFloat(raw.Double(), 'f', -1, 64))
	case bsontype.Int32:
		*q = Quantity(strconv.FormatInt(int64(raw.Int32()), 10))
	case bsontype.Int64:
		*q = Quantity(strconv.FormatInt(raw.Int64(), 10))
	default:
		return fmt.Errorf("cannot decode BSON %s into a quantity", t)
	}
	return nil
}
