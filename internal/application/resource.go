package application

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// fetch runs req and decodes the payload into a T. A null payload yields the
// zero T.
func fetch[T any](ctx context.Context, exec Executor, req model.Request) (T, error) {
	var out T
	resp, err := exec.Execute(ctx, req)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, fmt.Errorf("%s %s: %w", methodOrGet(req.Method), req.URL, err)
	}
	return out, nil
}

// run executes req for its side effect, discarding any payload.
func run(ctx context.Context, exec Executor, req model.Request) error {
	_, err := exec.Execute(ctx, req)
	return err
}

func methodOrGet(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return method
}
