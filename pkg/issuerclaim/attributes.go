/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Value is a claim attribute value: a string, a json.Number, a bool or nested Attributes.
type Value interface{}

// Attributes maps claim attribute names to their values.
type Attributes map[string]Value

// ParseAttributes decodes a JSON object of claim attributes.
// Arrays and null values are rejected at any depth.
func ParseAttributes(data string) (Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var raw map[string]interface{}

	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: claim attributes: %v", ErrInvalidOption, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: claim attributes: trailing data", ErrInvalidOption)
	}

	if raw == nil {
		return nil, fmt.Errorf("%w: claim attributes: not an object", ErrInvalidOption)
	}

	attrs, err := toAttributes(raw, "")
	if err != nil {
		return nil, fmt.Errorf("%w: claim attributes: %v", ErrInvalidOption, err)
	}

	return attrs, nil
}

func toAttributes(raw map[string]interface{}, path string) (Attributes, error) {
	attrs := make(Attributes, len(raw))

	for name, v := range raw {
		switch val := v.(type) {
		case string, json.Number, bool:
			attrs[name] = val
		case map[string]interface{}:
			nested, err := toAttributes(val, path+name+".")
			if err != nil {
				return nil, err
			}

			attrs[name] = nested
		case nil:
			return nil, fmt.Errorf("attribute %q is null", path+name)
		default:
			return nil, fmt.Errorf("attribute %q has unsupported type %T", path+name, v)
		}
	}

	return attrs, nil
}

// Names returns the attribute names in ascending order.
func (a Attributes) Names() []string {
	names := maps.Keys(a)
	slices.Sort(names)

	return names
}
