//go:build !linux

package ptt

import "errors"

func newPortalBackend(Binding) (Backend, error) {
	return nil, errors.New("desktop portal shortcuts are only available on linux")
}
