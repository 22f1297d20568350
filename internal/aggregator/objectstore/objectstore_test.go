package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type fakeClient struct {
	keys map[string][]string // prefix -> keys
	err  error
}

func (f *fakeClient) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.keys[prefix], nil
}

func (f *fakeClient) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func TestEnumerate_SplitsByFileKind(t *testing.T) {
	prefix := "data/org1/OCP/source=uuid-1/year=2025/month=10/"
	client := &fakeClient{keys: map[string][]string{
		prefix: {
			prefix + "date=02/pod_usage-1.parquet",
			prefix + "date=01/pod_usage.parquet",
			prefix + "node_labels.parquet",
			prefix + "namespace_labels.parquet",
			prefix + "README.txt",
		},
	}}
	e := &Enumerator{Client: client, Bucket: "b", OrgID: "org1"}

	fs, err := e.Enumerate(context.Background(), "uuid-1", "2025", "10")
	if err != nil {
		t.Fatalf("Enumerate() error: %v", err)
	}
	if len(fs.Usage) != 2 {
		t.Fatalf("Usage = %v, want 2 entries", fs.Usage)
	}
	// lexicographically sorted: date=01 before date=02
	if !strings.Contains(fs.Usage[0], "date=01") {
		t.Fatalf("Usage not sorted: %v", fs.Usage)
	}
	if len(fs.NodeLabels) != 1 || len(fs.NamespaceLabels) != 1 {
		t.Fatalf("label files not captured: %+v", fs)
	}
}

func TestEnumerate_NoFiles_EmptyNotError(t *testing.T) {
	client := &fakeClient{keys: map[string][]string{}}
	e := &Enumerator{Client: client, Bucket: "b", OrgID: "org1"}

	fs, err := e.Enumerate(context.Background(), "uuid-1", "2025", "10")
	if err != nil {
		t.Fatalf("Enumerate() error: %v", err)
	}
	if len(fs.Usage) != 0 {
		t.Fatalf("expected no usage files, got %v", fs.Usage)
	}
}

func TestEnumerate_ListFailure_IsObjectStoreUnavailable(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	e := &Enumerator{Client: client, Bucket: "b", OrgID: "org1"}

	_, err := e.Enumerate(context.Background(), "uuid-1", "2025", "10")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEnumerate_MonthZeroPadded(t *testing.T) {
	got := partitionPrefix("org1", "uuid-1", "2025", "01")
	want := "data/org1/OCP/source=uuid-1/year=2025/month=01/"
	if got != want {
		t.Fatalf("partitionPrefix() = %s, want %s", got, want)
	}
}
