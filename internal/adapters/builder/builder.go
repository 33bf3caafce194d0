// Package builder implements ports.BuilderService: building images from a
// cloned git repository or from a prepared local build context.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	git "github.com/go-git/go-git/v5"
	"github.com/sirupsen/logrus"
)

type Adapter struct {
	cli *client.Client
	log *logrus.Entry
}

// NewAdapter creates a builder backed by the local Docker daemon.
func NewAdapter(log *logrus.Entry) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{cli: cli, log: log}, nil
}

// BuildImage clones a repository and builds an image from its Dockerfile.
func (a *Adapter) BuildImage(ctx context.Context, repoURL string, imageName string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "dockboard-build-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	a.log.WithFields(logrus.Fields{"repo": repoURL, "image": imageName}).Info("cloning repository")
	_, err = git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1, // shallow clone, only the Dockerfile context matters
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone repo: %w", err)
	}

	return a.BuildDir(ctx, tmpDir, imageName)
}

// BuildDir builds an image from a local build context directory.
func (a *Adapter) BuildDir(ctx context.Context, dir string, imageName string) (string, error) {
	buildCtx, err := archive.TarWithOptions(dir, &archive.TarOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create build context: %w", err)
	}

	a.log.WithField("image", imageName).Info("building image")
	resp, err := a.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{imageName},
		Dockerfile: "Dockerfile",
		Remove:     true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	// The daemon streams progress messages and reports build failures inside
	// the stream, not as an ImageBuild error.
	decoder := json.NewDecoder(resp.Body)
	for {
		var msg struct {
			Stream string `json:"stream"`
			Error  string `json:"error"`
		}
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("failed to read build output: %w", err)
		}
		if msg.Error != "" {
			return "", fmt.Errorf("build failed: %s", msg.Error)
		}
	}

	return imageName, nil
}
