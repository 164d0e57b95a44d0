//go:build !linux

package platform

import "fmt"

// NewBackend reports that no display backend exists on this platform.
func NewBackend(display string) (Backend, error) {
	return nil, fmt.Errorf("display backend is not supported on this platform")
}
