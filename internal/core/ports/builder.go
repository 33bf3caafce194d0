package ports

import "context"

// BuilderService defines operations for building container images.
type BuilderService interface {
	// BuildImage clones a repository and builds an image from its Dockerfile.
	// It returns the tag of the built image or an error.
	BuildImage(ctx context.Context, repoURL string, imageName string) (string, error)

	// BuildDir builds an image from a prepared local build context directory.
	BuildDir(ctx context.Context, dir string, imageName string) (string, error)
}
