package atomicfile

import (
	"encoding/json"
	"reflect"
)

func jsonUnmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

// jsonMarshal serializes v, treating a nil pointer as "erase the
// content" rather than writing the literal "null": ModifyJSON then
// commits a new, empty version, which its next call decodes as nil
// again (Load still reports that version, with Exists() true).
func jsonMarshal(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, nil
	}
	return json.Marshal(v)
}
