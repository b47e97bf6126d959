//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"errors"
	"io"
)

var ErrKeyNotFound = errors.New("key not found")

type BasicClient interface {
	Lister
	Getter
	Opener
	Putter
}

type Lister interface {
	// List returns the keys below key, relative to the client prefix, in lexical order.
	List(key string) (keys []string, err error)
}

type Getter interface {
	// Get returns ErrKeyNotFound if the given key doesn't exist.
	Get(key string) (data []byte, err error)
}

type Opener interface {
	// Open streams the object body. The caller must close it.
	// It returns ErrKeyNotFound if the given key doesn't exist.
	Open(key string) (io.ReadCloser, error)
}

type Putter interface {
	Put(key string, data []byte) (err error)
}
