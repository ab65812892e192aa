/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package util

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// KeyLabels names integer map keys when rendering.
type KeyLabels map[uint64]string

// RenderCBOR decodes one CBOR item and renders it as indented JSON.
func RenderCBOR(data []byte, labels KeyLabels) (string, error) {
	var decoded any
	if err := cbor.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("decode cbor: %w", err)
	}
	return RenderCBORPretty(decoded, labels)
}

// RenderCBORPretty renders a decoded CBOR value as indented JSON. Byte
// strings render as 0x-prefixed hex.
func RenderCBORPretty(decoded any, labels KeyLabels) (string, error) {
	normalised, err := normaliseCBORForJSON(decoded, labels)
	if err != nil {
		return "", err
	}

	pretty, err := json.MarshalIndent(normalised, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}

func normaliseCBORForJSON(value any, labels KeyLabels) (any, error) {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			norm, err := normaliseCBORForJSON(elem, labels)
			if err != nil {
				return nil, err
			}
			out[i] = norm
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]any, len(v))
		for _, k := range keys {
			norm, err := normaliseCBORForJSON(v[k], labels)
			if err != nil {
				return nil, err
			}
			out[k] = norm
		}
		return out, nil
	case map[any]any:
		type entry struct {
			key string
			val any
		}

		entries := make([]entry, 0, len(v))
		for key, val := range v {
			keyStr := stringifyCBORKey(key, labels)
			norm, err := normaliseCBORForJSON(val, labels)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry{key: keyStr, val: norm})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].key < entries[j].key
		})

		out := make(map[string]any, len(entries))
		for _, e := range entries {
			out[e.key] = e.val
		}
		return out, nil
	case []byte:
		return fmt.Sprintf("0x%x", v), nil
	case cbor.Tag:
		content, err := normaliseCBORForJSON(v.Content, labels)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"_cborTag": v.Number,
			"content":  content,
		}, nil
	default:
		return v, nil
	}
}

func stringifyCBORKey(key any, labels KeyLabels) string {
	switch k := key.(type) {
	case uint64:
		if label, ok := labels[k]; ok {
			return label
		}
		return fmt.Sprint(k)
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	case []byte:
		return fmt.Sprintf("h'%x'", k)
	default:
		return fmt.Sprint(k)
	}
}
