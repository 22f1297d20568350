// Package objectstore implements spec.md §4.1: listing the columnar usage,
// node-label, and namespace-label files for one (provider, year, month)
// partition under an S3-compatible object store.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/errs"
)

// Client is the minimal object-store surface the enumerator and columnar
// reader need. The production implementation (NewS3Client) wraps
// aws-sdk-go-v2/service/s3; tests substitute an in-memory fake.
type Client interface {
	// ListObjects returns every object key under prefix, in whatever order
	// the backend yields (the enumerator sorts the result itself).
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	// GetObject opens key for reading. Callers must Close the reader.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// FileSet is the lexicographically ordered set of files discovered for one
// partition, split by the kind of data they carry.
type FileSet struct {
	Usage            []string
	NodeLabels       []string
	NamespaceLabels  []string
}

// Enumerator lists the files for one (org, provider, year, month)
// partition.
type Enumerator struct {
	Client Client
	Bucket string
	OrgID  string
}

// partitionPrefix builds data/<org>/OCP/source=<uuid>/year=<Y>/month=<MM>/
// per spec.md §6. month must already be two-char zero-padded by the caller
// (RunConfig / pipeline driver are responsible for that per spec.md §9's
// "month zero-padding" note).
func partitionPrefix(orgID, providerUUID, year, month string) string {
	return fmt.Sprintf("data/%s/OCP/source=%s/year=%s/month=%s/", orgID, providerUUID, year, month)
}

// Enumerate lists the usage, node-label, and namespace-label files for one
// partition. Each result slice is lexicographically sorted. A partition
// with no files of a given kind yields an empty (not nil-error) slice for
// that kind — only a listing failure is an error.
func (e *Enumerator) Enumerate(ctx context.Context, providerUUID, year, month string) (FileSet, error) {
	prefix := partitionPrefix(e.OrgID, providerUUID, year, month)

	keys, err := e.Client.ListObjects(ctx, e.Bucket, prefix)
	if err != nil {
		return FileSet{}, errs.ObjectStoreUnavailable(err, "listing %s/%s", e.Bucket, prefix)
	}

	var fs FileSet
	for _, k := range keys {
		base := path.Base(k)
		switch {
		case strings.Contains(base, "pod_usage"):
			fs.Usage = append(fs.Usage, k)
		case strings.Contains(base, "node_labels"):
			fs.NodeLabels = append(fs.NodeLabels, k)
		case strings.Contains(base, "namespace_labels"):
			fs.NamespaceLabels = append(fs.NamespaceLabels, k)
		}
	}
	sort.Strings(fs.Usage)
	sort.Strings(fs.NodeLabels)
	sort.Strings(fs.NamespaceLabels)
	return fs, nil
}
