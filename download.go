package odloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

func (c *OneDriveClient) openContent(ctx context.Context, node TreeNode) (*http.Response, string, error) {
	endpoint, err := c.endpoint(node.Link)
	if err != nil {
		return nil, "", err
	}
	endpoint += "/content"

	c.log.Info("request", zap.String("url", endpoint))
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, endpoint, err
	}
	return resp, endpoint, nil
}

// DownloadFile streams the content of a file node into writer and returns the
// HTTP status of the content request. The body is copied whatever the status.
func (c *OneDriveClient) DownloadFile(ctx context.Context, node TreeNode, writer io.Writer) (int, error) {
	resp, _, err := c.openContent(ctx, node)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	buffer := make([]byte, c.chunkSize())
	if _, err := io.CopyBuffer(writer, resp.Body, buffer); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}

// Run is the whole job: confirm the link is a folder, build the tree and
// download it. It returns the tree and the paths written.
func (c *OneDriveClient) Run(ctx context.Context, link string) ([]TreeNode, []string, error) {
	nodes, err := c.Scan(ctx, link)
	if err != nil {
		return nil, nil, err
	}
	saved, err := c.DownloadTree(ctx, nodes)
	return nodes, saved, err
}

// DownloadTree writes every file of the tree below Config.DownloadDir. Files of
// the top level land in DownloadDir itself. Files inside folders either land in
// the single flatten directory or in a path mirroring their ancestor folders.
// Existing files are overwritten.
func (c *OneDriveClient) DownloadTree(ctx context.Context, nodes []TreeNode) ([]string, error) {
	if err := makeFolder(c.config.DownloadDir, 0755); err != nil {
		return nil, err
	}
	if c.config.Flatten {
		if err := makeFolder(c.flattenDir(), 0755); err != nil {
			return nil, err
		}
	}

	var saved []string
	if err := c.downloadTree(ctx, nodes, c.config.DownloadDir, &saved); err != nil {
		return saved, err
	}
	return saved, nil
}

func (c *OneDriveClient) downloadTree(ctx context.Context, nodes []TreeNode, dir string, saved *[]string) error {
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := checkName(dir, node.Name); err != nil {
			return err
		}

		switch node.Kind {
		case FILE:
			path, err := c.saveFile(ctx, node, dir)
			if err != nil {
				return err
			}
			*saved = append(*saved, path)
		case FOLDER:
			sub := filepath.Join(dir, node.Name)
			if c.config.Flatten {
				sub = c.flattenDir()
			}
			if err := c.downloadTree(ctx, node.Children, sub, saved); err != nil {
				return err
			}
		}
		c.log.Debug("node done",
			zap.String("kind", string(node.Kind)),
			zap.String("name", node.Name),
			zap.Int64("size", node.Size),
		)
	}
	return nil
}

func (c *OneDriveClient) saveFile(ctx context.Context, node TreeNode, dir string) (string, error) {
	resp, endpoint, err := c.openContent(ctx, node)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if c.config.StrictContent {
			return "", &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		}
		c.log.Warn("content request failed, saving response body anyway",
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("name", node.Name),
		)
	}

	if err := makeFolder(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, node.Name)
	f, err := os.Create(path)
	if err != nil {
		return "", &FilesystemError{Op: "create", Path: path, Err: err}
	}
	defer f.Close()

	buffer := make([]byte, c.chunkSize())
	if _, err := io.CopyBuffer(f, resp.Body, buffer); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", &FilesystemError{Op: "close", Path: path, Err: err}
	}

	c.log.Info("saved", zap.String("path", path))
	return path, nil
}

func (c *OneDriveClient) flattenDir() string {
	return filepath.Join(c.config.DownloadDir, c.config.FlattenDir)
}

func (c *OneDriveClient) chunkSize() int {
	if c.config.ChunkSize <= 0 {
		return 32 * 1024
	}
	return c.config.ChunkSize
}

// checkName rejects remote names that would escape dir.
func checkName(dir, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return &FilesystemError{Op: "name", Path: filepath.Join(dir, name), Err: fmt.Errorf("invalid item name %q", name)}
	}
	return nil
}

func makeFolder(folder string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0755
	}
	_, err := os.Stat(folder)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(folder, perm); err != nil {
			return &FilesystemError{Op: "mkdir", Path: folder, Err: err}
		}
	} else if err != nil {
		return &FilesystemError{Op: "stat", Path: folder, Err: err}
	}
	return nil
}
