package repository

import (
	"reflect"

	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/go-viper/mapstructure/v2"
)

// Columns converts an update payload into a column map holding only its non-nil fields.
// Payload fields are pointers tagged `column:"<name>,omitempty"`.
func Columns(patch any) (map[string]any, error) {
	raw := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:              "column",
		IgnoreUntaggedFields: true,
		Result:               &raw,
	})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "build patch decoder failed")
	}
	if err := dec.Decode(patch); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid update payload")
	}

	cols := make(map[string]any, len(raw))
	for k, v := range raw {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() {
			continue
		}
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				continue
			}
			rv = rv.Elem()
		}
		cols[k] = rv.Interface()
	}
	return cols, nil
}
