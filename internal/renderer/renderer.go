package renderer

import "context"

// SceneRenderer turns an opaque scene configuration into a rendered media
// artifact and returns the path of the produced output. Implementations must
// be safe for concurrent use by multiple workers.
type SceneRenderer interface {
	Render(ctx context.Context, sceneConfig map[string]any) (string, error)
}

// RenderFunc adapts a plain function to the SceneRenderer interface.
type RenderFunc func(ctx context.Context, sceneConfig map[string]any) (string, error)

func (f RenderFunc) Render(ctx context.Context, sceneConfig map[string]any) (string, error) {
	return f(ctx, sceneConfig)
}
