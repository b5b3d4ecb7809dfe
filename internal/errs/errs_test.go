package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Store("create", "a/b.json", cause)

	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFound(err))
	assert.True(t, IsStore(err))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "full context",
			err:  Decode("findOne", "a/b.json", errors.New("unexpected EOF")),
			want: `findOne: decode error (location "a/b.json"): unexpected EOF`,
		},
		{
			name: "no location",
			err:  Configuration("AWS_S3_BUCKET_NAME is required"),
			want: "configuration error: AWS_S3_BUCKET_NAME is required",
		},
		{
			name: "no cause",
			err:  &Error{Kind: ErrNotFound, Op: "findOne"},
			want: "findOne: object not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_As(t *testing.T) {
	err := Validation("getSignedUrl", "", "expiresIn must be positive")

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "getSignedUrl", e.Op)
	assert.True(t, IsValidation(err))
	assert.False(t, IsDecode(err))
}
