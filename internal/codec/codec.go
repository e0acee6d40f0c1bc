// Package codec provides the pluggable per-page encrypt/decrypt hook the
// pager calls on every physical read and write (spec section 4.K).
package codec

import "github.com/brackendb/jetstore/errors"

// Header codec type values, read from the file header on page 0.
const (
	CodecTypeNone   = 0
	CodecTypeJet    = 1
	CodecTypeOffice = 2
)

// Handler encodes and decodes one page's content in place. Decode is called
// after a physical read, Encode before a physical write. Implementations
// must be safe to call repeatedly on buffers of exactly the pager's page
// size.
type Handler interface {
	Decode(page []byte, pageNumber int) error
	Encode(page []byte, pageNumber int) ([]byte, error)
}

// passThroughHandler is used for unencrypted files: both directions are a
// no-op.
type passThroughHandler struct{}

func (passThroughHandler) Decode(page []byte, pageNumber int) error { return nil }
func (passThroughHandler) Encode(page []byte, pageNumber int) ([]byte, error) {
	return page, nil
}

// PassThrough is the stock no-op Handler.
var PassThrough Handler = passThroughHandler{}

// refuseHandler rejects every call, for encrypted files with no capable
// codec registered.
type refuseHandler struct {
	codecType int
}

func (r refuseHandler) Decode(page []byte, pageNumber int) error {
	return errors.NewUnsupportedCodec(r.codecType)
}

func (r refuseHandler) Encode(page []byte, pageNumber int) ([]byte, error) {
	return nil, errors.NewUnsupportedCodec(r.codecType)
}

// Refuse returns the stock codec that rejects every call, for a file whose
// header reports an encrypted codec type with no registered provider.
func Refuse(codecType int) Handler { return refuseHandler{codecType: codecType} }

// Provider resolves which Handler to use for a given database, based on the
// file header's codec type and encoding key. A zero encoding key always
// means pass-through, even if codecType names an encrypted format (spec
// section 4.K).
type Provider interface {
	Resolve(codecType int, encodingKey uint32) (Handler, error)
}

// DefaultProvider implements the two stock handlers and nothing else: any
// non-zero encoding key with a recognized encrypted codec type is refused,
// since this module ships no encryption implementation (spec section 1).
type DefaultProvider struct{}

func (DefaultProvider) Resolve(codecType int, encodingKey uint32) (Handler, error) {
	if encodingKey == 0 {
		return PassThrough, nil
	}
	switch codecType {
	case CodecTypeNone:
		return PassThrough, nil
	case CodecTypeJet, CodecTypeOffice:
		return Refuse(codecType), nil
	default:
		return Refuse(codecType), nil
	}
}

// Registry lets a caller register additional Providers ahead of
// DefaultProvider, per spec section 4.K's "registration hook" design note.
// The first Provider whose Resolve returns a non-refuse Handler wins; if
// every registered provider refuses, the last refusal error is returned.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a Registry that always falls back to DefaultProvider.
func NewRegistry(extra ...Provider) *Registry {
	return &Registry{providers: append(append([]Provider{}, extra...), DefaultProvider{})}
}

func (r *Registry) Resolve(codecType int, encodingKey uint32) (Handler, error) {
	var lastErr error
	for _, p := range r.providers {
		h, err := p.Resolve(codecType, encodingKey)
		if err != nil {
			lastErr = err
			continue
		}
		if _, isRefuse := h.(refuseHandler); isRefuse {
			lastErr = errors.NewUnsupportedCodec(codecType)
			continue
		}
		return h, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return PassThrough, nil
}
