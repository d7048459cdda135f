package odloader

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Scan confirms that link is a folder and returns its full tree.
func (c *OneDriveClient) Scan(ctx context.Context, link string, cb ...GetTreeCallback) ([]TreeNode, error) {
	ok, err := c.IsFolder(ctx, link)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFolder, link)
	}
	return c.GetTree(ctx, link, cb...)
}

// GetTree walks the folder behind link recursively. Children keep the order of
// the remote listing. Any failure aborts the walk; no partial tree is returned.
func (c *OneDriveClient) GetTree(ctx context.Context, link string, cb ...GetTreeCallback) ([]TreeNode, error) {
	var callback GetTreeCallback
	if len(cb) > 0 {
		callback = cb[0]
	}

	var count int64
	var totalSize int64

	nodes, err := c.getTree(ctx, link, 0, &count, &totalSize, callback)
	if err != nil {
		return nil, err
	}
	c.log.Debug("tree built",
		zap.String("link", link),
		zap.Int64("files", count),
		zap.Int64("size", totalSize),
	)
	return nodes, nil
}

func (c *OneDriveClient) getTree(
	ctx context.Context,
	link string,
	depth int,
	count *int64,
	totalSize *int64,
	cb GetTreeCallback,
) ([]TreeNode, error) {
	if c.config.MaxDepth > 0 && depth >= c.config.MaxDepth {
		return nil, fmt.Errorf("%w: %d levels below %s", ErrMaxDepth, depth, link)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := c.ListChildren(ctx, link)
	if err != nil {
		return nil, err
	}

	nodes := make([]TreeNode, 0, len(items))
	for _, i := range items {
		node := TreeNode{
			Kind: i.Kind,
			Name: i.Name,
			Size: i.Size,
			Link: i.WebURL,
		}

		switch i.Kind {
		case FILE:
			*count++
			*totalSize += i.Size
			if cb != nil {
				cb(*count, *totalSize)
			}
		case FOLDER:
			sub, err := c.getTree(ctx, i.WebURL, depth+1, count, totalSize, cb)
			if err != nil {
				return nil, err
			}
			node.Children = sub
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Walk visits nodes in pre-order. parents holds the names of the ancestor
// folders of n, outermost first.
func Walk(nodes []TreeNode, fn func(parents []string, n TreeNode)) {
	walk(nodes, nil, fn)
}

func walk(nodes []TreeNode, parents []string, fn func([]string, TreeNode)) {
	for _, n := range nodes {
		fn(parents, n)
		if n.IsFolder() {
			walk(n.Children, append(parents[:len(parents):len(parents)], n.Name), fn)
		}
	}
}

// Stats counts the files in a tree and sums their sizes.
func Stats(nodes []TreeNode) (files int64, size int64) {
	Walk(nodes, func(_ []string, n TreeNode) {
		if n.Kind == FILE {
			files++
			size += n.Size
		}
	})
	return files, size
}
