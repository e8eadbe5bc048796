package mock

import (
	"context"
	"io"
)

type ImageStore struct {
	SaveFn      func(ctx context.Context, namespace string, r io.Reader) (string, error)
	NormalizeFn func(ctx context.Context, name string) error
	RemoveFn    func(ctx context.Context, name string) error
}

func (s ImageStore) Save(ctx context.Context, namespace string, r io.Reader) (string, error) {
	return s.SaveFn(ctx, namespace, r)
}

func (s ImageStore) Normalize(ctx context.Context, name string) error {
	return s.NormalizeFn(ctx, name)
}

func (s ImageStore) Remove(ctx context.Context, name string) error {
	return s.RemoveFn(ctx, name)
}
