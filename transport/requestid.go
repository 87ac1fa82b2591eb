package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RequestId is a tagged union over the two wire representations JSON-RPC
// allows for an id: a signed integer or a string. Locally generated ids are
// always the integer variant; string ids only ever arrive from a peer.
//
// Equality and hashing are variant-aware: an integer 1 and a string "1" are
// never equal, matching the JSON-RPC spec.
type RequestId struct {
	isString bool
	intVal   int64
	strVal   string
}

// NewRequestId builds the integer variant of a RequestId.
func NewRequestId(i int64) RequestId {
	return RequestId{intVal: i}
}

// NewStringRequestId builds the string variant of a RequestId.
func NewStringRequestId(s string) RequestId {
	return RequestId{isString: true, strVal: s}
}

// IsString reports whether this id is the string variant.
func (r RequestId) IsString() bool { return r.isString }

// Int returns the integer value, or 0 if this id is the string variant.
func (r RequestId) Int() int64 { return r.intVal }

// String returns the string value if this is the string variant, otherwise
// the decimal rendering of the integer value.
func (r RequestId) String() string {
	if r.isString {
		return r.strVal
	}
	return strconv.FormatInt(r.intVal, 10)
}

// Equal reports variant-aware equality, per the RequestId invariant in the
// data model: cross-variant comparisons are always false.
func (r RequestId) Equal(o RequestId) bool {
	if r.isString != o.isString {
		return false
	}
	if r.isString {
		return r.strVal == o.strVal
	}
	return r.intVal == o.intVal
}

func (r RequestId) MarshalJSON() ([]byte, error) {
	if r.isString {
		return json.Marshal(r.strVal)
	}
	return json.Marshal(r.intVal)
}

func (r *RequestId) UnmarshalJSON(b []byte) error {
	var asInt int64
	if err := json.Unmarshal(b, &asInt); err == nil {
		r.isString = false
		r.intVal = asInt
		r.strVal = ""
		return nil
	}
	var asString string
	if err := json.Unmarshal(b, &asString); err == nil {
		r.isString = true
		r.strVal = asString
		r.intVal = 0
		return nil
	}
	return fmt.Errorf("transport: request id must be a number or a string, got %s", string(b))
}
