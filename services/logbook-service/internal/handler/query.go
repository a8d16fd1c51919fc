package handler

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/form"
)

var queryTimeLayouts = []string{time.RFC3339Nano, "2006-01-02"}

func newQueryDecoder() *form.Decoder {
	decoder := form.NewDecoder()
	decoder.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		for _, layout := range queryTimeLayouts {
			if t, err := time.Parse(layout, vals[0]); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid date %q", vals[0])
	}, time.Time{})

	return decoder
}

func decodeQuery(decoder *form.Decoder, dst any, values url.Values) error {
	return decoder.Decode(dst, values)
}
