package s3tree

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jedib0t/go-pretty/v6/list"
)

// API is the slice of the S3 client the tree builder needs.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Node is one path segment in the bucket's key space. Children keep
// insertion order, which follows S3's lexicographic listing order.
type Node struct {
	Name     string
	Children []*Node

	children map[string]*Node
}

func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

func (n *Node) child(name string) *Node {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if existing, ok := n.children[name]; ok {
		return existing
	}
	c := &Node{Name: name}
	n.children[name] = c
	n.Children = append(n.Children, c)
	return c
}

func (n *Node) insert(key string) {
	cur := n
	for _, segment := range strings.Split(key, "/") {
		if segment == "" {
			continue
		}
		cur = cur.child(segment)
	}
}

// Build lists all keys under prefix and folds them into a tree rooted
// at the bucket name. It pages through the listing manually so the API
// surface stays fakeable in tests.
func Build(ctx context.Context, client API, bucket, prefix string) (*Node, error) {
	root := &Node{Name: bucket}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	for {
		out, err := client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("listing bucket '%s': %w", bucket, err)
		}
		for _, object := range out.Contents {
			root.insert(aws.ToString(object.Key))
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	return root, nil
}

// Render writes the tree as a connected list. maxDepth <= 0 means no
// depth limit.
func Render(w io.Writer, root *Node, maxDepth int) {
	l := list.NewWriter()
	l.SetOutputMirror(w)
	l.SetStyle(list.StyleConnectedLight)

	l.AppendItem(root.Name)
	l.Indent()
	appendChildren(l, root, 1, maxDepth)
	l.UnIndent()

	l.Render()
}

func appendChildren(l list.Writer, n *Node, depth, maxDepth int) {
	if maxDepth > 0 && depth > maxDepth {
		return
	}
	for _, child := range n.Children {
		name := child.Name
		if !child.IsLeaf() {
			name += "/"
		}
		l.AppendItem(name)
		if !child.IsLeaf() {
			l.Indent()
			appendChildren(l, child, depth+1, maxDepth)
			l.UnIndent()
		}
	}
}
