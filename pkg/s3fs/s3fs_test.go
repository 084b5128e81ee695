package s3fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zindlerb/bridgefs/pkg/loop"
	"github.com/zindlerb/bridgefs/pkg/vfs"
)

// fakeClient keeps objects in a map and answers the subset of the S3
// API the backend uses.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func httpError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{
				Response: &http.Response{StatusCode: status},
			},
			Err: errors.New(http.StatusText(status)),
		},
	}
}

func (c *fakeClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (c *fakeClient) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, httpError(http.StatusNotFound)
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (c *fakeClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, httpError(http.StatusNotFound)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (c *fakeClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (c *fakeClient) CopyObject(ctx context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := aws.ToString(in.CopySource)
	if i := strings.Index(src, "/"); i >= 0 {
		src = src[i+1:]
	}
	data, ok := c.objects[src]
	if !ok {
		return nil, httpError(http.StatusNotFound)
	}
	c.objects[aws.ToString(in.Key)] = append([]byte(nil), data...)
	return &s3.CopyObjectOutput{}, nil
}

func (c *fakeClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)
	max := int(aws.ToInt32(in.MaxKeys))

	keys := make([]string, 0, len(c.objects))
	for k := range c.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	seenPrefixes := map[string]bool{}
	count := 0
	for _, k := range keys {
		if max > 0 && count >= max {
			break
		}
		rest := strings.TrimPrefix(k, prefix)
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				p := prefix + rest[:i+1]
				if !seenPrefixes[p] {
					seenPrefixes[p] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(p)})
					count++
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(k),
			Size: aws.Int64(int64(len(c.objects[k]))),
		})
		count++
	}
	return out, nil
}

func (c *fakeClient) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (c *fakeClient) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (c *fakeClient) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (c *fakeClient) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

var _ Client = (*fakeClient)(nil)
var _ manager.UploadAPIClient = (*fakeClient)(nil)

func call(l *loop.Loop, op func(resume vfs.ResumeLong)) int64 {
	ch := make(chan int64, 1)
	l.Schedule(func() {
		op(func(ret int64) { ch <- ret })
	})
	return <-ch
}

func callCode(l *loop.Loop, op func(resume vfs.ResumeErrno)) vfs.Errno {
	ch := make(chan vfs.Errno, 1)
	l.Schedule(func() {
		op(func(code vfs.Errno) { ch <- code })
	})
	return <-ch
}

func newTestFS(t *testing.T) (*FS, *fakeClient, *loop.Loop) {
	t.Helper()
	l := loop.Start()
	t.Cleanup(l.Close)
	client := newFakeClient()
	return New(l, client, "test-bucket", "", DefaultFDBase), client, l
}

func TestWriteFlushesOnClose(t *testing.T) {
	fs, client, l := newTestFS(t)

	fd := call(l, func(r vfs.ResumeLong) {
		fs.Open("persistent/f", vfs.O_WRONLY|vfs.O_CREAT, 0o644, r)
	})
	require.GreaterOrEqual(t, fd, int64(DefaultFDBase))

	n := call(l, func(r vfs.ResumeLong) { fs.Write(fd, []byte("hello"), r) })
	assert.Equal(t, int64(5), n)

	// Nothing uploaded until close.
	client.mu.Lock()
	_, uploaded := client.objects["persistent/f"]
	client.mu.Unlock()
	assert.False(t, uploaded)

	code := callCode(l, func(r vfs.ResumeErrno) { fs.Close(fd, r) })
	require.Equal(t, vfs.ESUCCESS, code)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, []byte("hello"), client.objects["persistent/f"])
}

func TestOpenReadsObject(t *testing.T) {
	fs, client, l := newTestFS(t)
	client.objects["persistent/f"] = []byte("stored")

	fd := call(l, func(r vfs.ResumeLong) {
		fs.Open("persistent/f", vfs.O_RDONLY, 0, r)
	})
	require.Greater(t, fd, int64(0))

	buf := make([]byte, 16)
	n := call(l, func(r vfs.ResumeLong) { fs.Read(fd, buf, r) })
	assert.Equal(t, "stored", string(buf[:n]))
}

func TestOpenMissingMapsToENOENT(t *testing.T) {
	fs, _, l := newTestFS(t)

	ret := call(l, func(r vfs.ResumeLong) {
		fs.Open("persistent/missing", vfs.O_RDONLY, 0, r)
	})
	assert.Equal(t, -int64(vfs.ENOENT), ret)
}

func TestMkdirAndGetdents(t *testing.T) {
	fs, client, l := newTestFS(t)

	ret := call(l, func(r vfs.ResumeLong) { fs.Mkdir("persistent/d", 0o755, r) })
	require.Equal(t, int64(0), ret)
	client.mu.Lock()
	_, marker := client.objects["persistent/d/"]
	client.mu.Unlock()
	assert.True(t, marker)

	client.mu.Lock()
	client.objects["persistent/d/f.txt"] = []byte("x")
	client.mu.Unlock()

	fd := call(l, func(r vfs.ResumeLong) {
		fs.Open("persistent/d", vfs.O_RDONLY, 0, r)
	})
	require.Greater(t, fd, int64(0))

	buf := make([]byte, 4096)
	n := call(l, func(r vfs.ResumeLong) { fs.Getdents(fd, buf, r) })
	require.Greater(t, n, int64(0))

	var names []string
	for _, ent := range vfs.ParseDirents(buf, int(n)) {
		names = append(names, ent.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{".", "..", "f.txt"}, names)
}

func TestRmdirNotEmpty(t *testing.T) {
	fs, client, l := newTestFS(t)

	call(l, func(r vfs.ResumeLong) { fs.Mkdir("persistent/d", 0o755, r) })
	client.mu.Lock()
	client.objects["persistent/d/f"] = []byte("x")
	client.mu.Unlock()

	ret := call(l, func(r vfs.ResumeLong) { fs.Rmdir("persistent/d", r) })
	assert.Equal(t, -int64(vfs.ENOTEMPTY), ret)
}

func TestRenameCopiesAndDeletes(t *testing.T) {
	fs, client, l := newTestFS(t)
	client.objects["persistent/a"] = []byte("contents")

	ret := call(l, func(r vfs.ResumeLong) { fs.Rename("persistent/a", "persistent/b", r) })
	require.Equal(t, int64(0), ret)

	client.mu.Lock()
	defer client.mu.Unlock()
	_, oldThere := client.objects["persistent/a"]
	assert.False(t, oldThere)
	assert.Equal(t, []byte("contents"), client.objects["persistent/b"])
}

func TestStat(t *testing.T) {
	fs, client, l := newTestFS(t)
	client.objects["persistent/f"] = []byte("12345")
	client.objects["persistent/d/"] = nil

	var st vfs.FileInfo
	ret := call(l, func(r vfs.ResumeLong) { fs.Stat("persistent/f", &st, r) })
	require.Equal(t, int64(0), ret)
	assert.Equal(t, int64(5), st.Size)
	assert.False(t, st.IsDir)

	ret = call(l, func(r vfs.ResumeLong) { fs.Stat("persistent/d", &st, r) })
	require.Equal(t, int64(0), ret)
	assert.True(t, st.IsDir)
}

func TestKeyPrefix(t *testing.T) {
	l := loop.Start()
	t.Cleanup(l.Close)
	client := newFakeClient()
	fs := New(l, client, "test-bucket", "apps/shim", DefaultFDBase)

	fd := call(l, func(r vfs.ResumeLong) {
		fs.Open("persistent/f", vfs.O_WRONLY|vfs.O_CREAT, 0o644, r)
	})
	require.Greater(t, fd, int64(0))
	call(l, func(r vfs.ResumeLong) { fs.Write(fd, []byte("x"), r) })
	require.Equal(t, vfs.ESUCCESS, callCode(l, func(r vfs.ResumeErrno) { fs.Close(fd, r) }))

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Contains(t, client.objects, "apps/shim/persistent/f")
}
