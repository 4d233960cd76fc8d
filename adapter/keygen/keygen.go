// Package keygen contains the default [domain.KeyGenerator] implementation
// using random UUIDs.
package keygen

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"
	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

// KeyGenerator implements [domain.KeyGenerator].
type KeyGenerator struct {
	reader io.Reader
}

// NewKeyGenerator returns a new implementation of [domain.KeyGenerator].
func NewKeyGenerator(opts ...Option) domain.KeyGenerator {
	k := KeyGenerator{
		reader: rand.Reader,
	}
	for _, opt := range opts {
		opt(&k)
	}
	return &k
}

// GenerateKey implements [domain.KeyGenerator]. Keys are version 4 UUIDs in
// their canonical textual form.
func (k *KeyGenerator) GenerateKey() (string, error) {
	id, err := uuid.NewRandomFromReader(k.reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
