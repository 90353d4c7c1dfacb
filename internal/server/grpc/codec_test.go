package grpc

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCBORCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(codecName)
	require.NotNil(t, c)

	content := bytes.Repeat([]byte{0xff}, 3000)
	data, err := c.Marshal(&UploadFileRequest{Name: "a.bin", Content: content})
	require.NoError(t, err)
	assert.Less(t, len(data), 3100, "file content is sent as raw bytes")

	var got UploadFileRequest
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, "a.bin", got.Name)
	assert.Equal(t, content, got.Content)
}

func TestCBORCodec_PartialUpdateAndTimes(t *testing.T) {
	c := encoding.GetCodec(codecName)
	name := "GitHub"

	data, err := c.Marshal(&SecretInput{ID: "id-1", SiteName: &name})
	require.NoError(t, err)
	var in SecretInput
	require.NoError(t, c.Unmarshal(data, &in))
	assert.Nil(t, in.Password, "omitted fields stay nil")
	require.NotNil(t, in.SiteName)
	assert.Equal(t, "GitHub", *in.SiteName)

	created := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	data, err = c.Marshal(&File{ID: "f1", CreatedAt: created})
	require.NoError(t, err)
	var f File
	require.NoError(t, c.Unmarshal(data, &f))
	assert.True(t, created.Equal(f.CreatedAt))
}
