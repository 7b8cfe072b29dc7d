//go:build windows

package storage

import "errors"

func freeBytes(path string) (int64, error) {
	return 0, errors.New("free space check not supported on this platform")
}
