package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobapi/internal/errs"
)

// fakeS3 is an in-process S3API that records multipart traffic.
type fakeS3 struct {
	mu       sync.Mutex
	parts    map[int32][]byte
	put      []byte
	inFlight int32
	maxSeen  int32
	aborted  bool
	failPart int32

	pages     [][]types.Object
	listCalls int

	getErr    error
	deleteErr error
	deleteOut *s3.DeleteObjectOutput
	objects   map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{parts: map[int32][]byte{}, objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.put = b
	f.mu.Unlock()
	return &s3.PutObjectOutput{ETag: aws.String(`"single"`)}, nil
}

func (f *fakeS3) CreateMultipartUpload(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return &s3.CreateMultipartUploadOutput{
		Bucket:   in.Bucket,
		Key:      in.Key,
		UploadId: aws.String("upload-1"),
	}, nil
}

func (f *fakeS3) UploadPart(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}

	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	time.Sleep(20 * time.Millisecond)

	num := aws.ToInt32(in.PartNumber)
	if f.failPart != 0 && num == f.failPart {
		return nil, errors.New("part rejected")
	}

	f.mu.Lock()
	f.parts[num] = b
	f.mu.Unlock()
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf(`"part-%d"`, num))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return &s3.CompleteMultipartUploadOutput{
		Bucket:   in.Bucket,
		Key:      in.Key,
		ETag:     aws.String(`"multi"`),
		Location: aws.String("https://bucket.s3.amazonaws.com/" + aws.ToString(in.Key)),
	}, nil
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	f.aborted = true
	f.mu.Unlock()
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: aws.Int64(int64(len(b))),
		ContentType:   aws.String("text/plain"),
	}, nil
}

func (f *fakeS3) DeleteObject(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if f.deleteOut != nil {
		return f.deleteOut, nil
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listCalls++
	idx := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		idx, _ = strconv.Atoi(tok)
	}
	out := &s3.ListObjectsV2Output{Contents: f.pages[idx]}
	if idx+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(idx + 1))
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func newTestS3(f *fakeS3) *S3Storage {
	creds := credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")
	return NewS3FromClient(f, nil, creds, "eu-west-2", "bucket")
}

func TestS3Storage_Upload_BoundsConcurrency(t *testing.T) {
	f := newFakeS3()
	st := newTestS3(f)

	payload := bytes.Repeat([]byte("x"), 20*1024*1024)
	var last int64
	var calls int
	res, err := st.Upload(context.Background(), "big/blob.bin", bytes.NewReader(payload), int64(len(payload)),
		UploadOptions{Concurrency: 2, PartSize: MinPartSize},
		func(n int64) {
			assert.GreaterOrEqual(t, n, last)
			last = n
			calls++
		})
	require.NoError(t, err)

	assert.Equal(t, "big/blob.bin", res.Key)
	assert.Equal(t, "upload-1", res.UploadID)
	assert.LessOrEqual(t, atomic.LoadInt32(&f.maxSeen), int32(2))
	assert.GreaterOrEqual(t, len(f.parts), 4)

	var total int
	for _, p := range f.parts {
		total += len(p)
	}
	assert.Equal(t, len(payload), total)
	assert.Equal(t, int64(len(payload)), last)
	assert.Positive(t, calls)
}

func TestS3Storage_Upload_SmallBodySinglePut(t *testing.T) {
	f := newFakeS3()
	st := newTestS3(f)

	res, err := st.Upload(context.Background(), "a/b.txt", bytes.NewReader([]byte("hello")), 5, UploadOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), f.put)
	assert.Equal(t, `"single"`, res.ETag)
	assert.Empty(t, f.parts)
}

func TestS3Storage_Upload_PartFailureAborts(t *testing.T) {
	payload := bytes.Repeat([]byte("y"), 12*1024*1024)

	t.Run("abort", func(t *testing.T) {
		f := newFakeS3()
		f.failPart = 2
		_, err := newTestS3(f).Upload(context.Background(), "k", bytes.NewReader(payload), -1, UploadOptions{Concurrency: 1, PartSize: MinPartSize}, nil)
		require.Error(t, err)
		assert.True(t, f.aborted)
	})

	t.Run("leave parts", func(t *testing.T) {
		f := newFakeS3()
		f.failPart = 2
		_, err := newTestS3(f).Upload(context.Background(), "k", bytes.NewReader(payload), -1, UploadOptions{Concurrency: 1, PartSize: MinPartSize, LeavePartsOnError: true}, nil)
		require.Error(t, err)
		assert.False(t, f.aborted)
	})
}

func TestS3Storage_List(t *testing.T) {
	f := newFakeS3()
	f.pages = [][]types.Object{
		{{Key: aws.String("p/a"), Size: aws.Int64(1)}, {Key: aws.String("p/b"), Size: aws.Int64(2)}},
		{{Key: aws.String("p/c"), Size: aws.Int64(3)}},
	}
	st := newTestS3(f)

	all, err := st.List(context.Background(), "p/", false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p/c", all[2].Key)
	assert.Equal(t, 2, f.listCalls)

	f.listCalls = 0
	first, err := st.List(context.Background(), "p/", true)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, f.listCalls)
}

func TestS3Storage_GetDelete_NotFound(t *testing.T) {
	f := newFakeS3()
	f.objects["a/b.txt"] = []byte("hi")
	st := newTestS3(f)

	rc, info, err := st.Get(context.Background(), "a/b.txt")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "hi", string(b))
	assert.Equal(t, int64(2), info.Size)

	_, _, err = st.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	f.getErr = &smithy.GenericAPIError{Code: "NotFound"}
	_, _, err = st.Get(context.Background(), "a/b.txt")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	f.getErr = &smithy.GenericAPIError{Code: "AccessDenied"}
	_, _, err = st.Get(context.Background(), "a/b.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrNotFound)

	f.deleteErr = &types.NoSuchKey{}
	ack, err := st.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{Key: "missing"}, ack)
}

func TestS3Storage_Delete_Acknowledgement(t *testing.T) {
	f := newFakeS3()
	f.deleteOut = &s3.DeleteObjectOutput{VersionId: aws.String("v7"), DeleteMarker: aws.Bool(true)}
	st := newTestS3(f)

	ack, err := st.Delete(context.Background(), "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{Key: "a/b.txt", VersionID: "v7", DeleteMarker: true}, ack)

	f.deleteOut = nil
	f.deleteErr = &smithy.GenericAPIError{Code: "AccessDenied"}
	_, err = st.Delete(context.Background(), "a/b.txt")
	require.Error(t, err)
}

func TestS3Storage_Upload_ProgressCountsAcceptedParts(t *testing.T) {
	f := newFakeS3()
	f.failPart = 3
	st := newTestS3(f)

	payload := bytes.Repeat([]byte("z"), int(3*MinPartSize))
	var seen []int64
	_, err := st.Upload(context.Background(), "k", bytes.NewReader(payload), int64(len(payload)),
		UploadOptions{Concurrency: 1, PartSize: MinPartSize},
		func(n int64) { seen = append(seen, n) })
	require.Error(t, err)

	// Parts 1 and 2 were accepted; the rejected third part is never reported.
	assert.Equal(t, []int64{MinPartSize, 2 * MinPartSize}, seen)
}

func TestS3Storage_PresignURLMatchesPresignGet(t *testing.T) {
	creds := credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")
	client := s3.New(s3.Options{
		Region:       "eu-west-2",
		Credentials:  creds,
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
	st := NewS3FromClient(client, s3.NewPresignClient(client), creds, "eu-west-2", "bucket")
	ctx := context.Background()

	byKey, err := st.PresignGet(ctx, "a/b.txt", 15*time.Minute)
	require.NoError(t, err)
	byURL, err := st.PresignURL(ctx, "http://localhost:9000/bucket/a/b.txt", 15*time.Minute)
	require.NoError(t, err)

	u1, err := url.Parse(byKey)
	require.NoError(t, err)
	u2, err := url.Parse(byURL)
	require.NoError(t, err)

	assert.Equal(t, u1.Host, u2.Host)
	assert.Equal(t, u1.Path, u2.Path)
	assert.Equal(t, "900", u1.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "900", u2.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u2.Query().Get("X-Amz-Signature"))
	assert.Contains(t, u2.Query().Get("X-Amz-Credential"), "AKID/")

	// Re-signing a URL that was already signed replaces its signature.
	resigned, err := st.PresignURL(ctx, byKey, 10*time.Minute)
	require.NoError(t, err)
	u3, err := url.Parse(resigned)
	require.NoError(t, err)
	q := u3.Query()
	assert.Equal(t, u1.Path, u3.Path)
	assert.Len(t, q["X-Amz-Signature"], 1)
	assert.Len(t, q["X-Amz-Credential"], 1)
	assert.Len(t, q["X-Amz-Date"], 1)
	assert.Len(t, q["X-Amz-Expires"], 1)
	assert.Equal(t, "600", q.Get("X-Amz-Expires"))

	_, err = st.PresignURL(ctx, "not a url", time.Minute)
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = st.PresignURL(ctx, "/bucket/a/b.txt", time.Minute)
	assert.ErrorIs(t, err, errs.ErrValidation)
}
