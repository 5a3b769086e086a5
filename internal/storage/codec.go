package storage

import (
	"fmt"

	"github.com/bytedance/sonic"
)

func encode(kind string, v any) ([]byte, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return data, nil
}

// decode expects data the caller owns; badger values must be copied first.
func decode[T any](kind string, data []byte) (*T, error) {
	var v T
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return &v, nil
}
