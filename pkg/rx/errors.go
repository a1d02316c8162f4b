package rx

import (
	"errors"
)

var (
	// ErrBufferEmpty indicates a read from an empty receive buffer.
	ErrBufferEmpty = errors.New("receive buffer empty")
)
