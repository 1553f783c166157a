package validator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var ErrInvalidJSON = errors.New("invalid json")

// JSON decodes exactly one JSON value from a request body. Unknown fields are
// tolerated unless Strict is set, so provider payloads can grow.
type JSON struct {
	MaxBytes int64
	Strict   bool
}

func NewJSON() *JSON {
	return &JSON{MaxBytes: 1 << 20}
}

func NewStrictJSON() *JSON {
	return &JSON{MaxBytes: 1 << 20, Strict: true}
}

func (v *JSON) Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, v.MaxBytes)
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(body)
	if v.Strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return errors.Join(ErrInvalidJSON, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrInvalidJSON
	}
	return nil
}
