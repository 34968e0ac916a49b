package utils

import (
	"encoding/json"

	"github.com/juju/errors"
)

func Serialize(o any) ([]byte, error) {
	b, err := json.Marshal(o)
	return b, errors.Trace(err)
}

// Unserialize decodes b into a new T.
func Unserialize[T any](b []byte) (*T, error) {
	o := new(T)
	if err := json.Unmarshal(b, o); err != nil {
		return nil, errors.Trace(err)
	}
	return o, nil
}
