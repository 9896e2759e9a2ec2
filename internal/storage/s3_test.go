package storage

import (
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsValidate(t *testing.T) {
	valid := Settings{AccessKeyID: "key", SecretAccessKey: "secret", Bucket: "files"}
	require.NoError(t, valid.Validate())

	missingBucket := valid
	missingBucket.Bucket = ""
	assert.Error(t, missingBucket.Validate())

	missingSecret := valid
	missingSecret.SecretAccessKey = ""
	assert.Error(t, missingSecret.Validate())

	badProtocol := valid
	badProtocol.Protocol = "ftp"
	assert.Error(t, badProtocol.Validate())

	https := valid
	https.Protocol = "https"
	assert.NoError(t, https.Validate())
}

func TestNewS3ClientRejectsInvalidSettings(t *testing.T) {
	_, err := NewS3Client(Settings{Bucket: "files"})
	assert.Error(t, err)
}

func TestApplyHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "image/png")
	headers.Set("Cache-Control", "max-age=3600")
	headers.Set("x-amz-acl", "public-read")
	headers.Set("If-None-Match", "*")
	headers.Set("X-Amz-Meta-Owner", "42")

	input := &s3.PutObjectInput{}
	applyHeaders(input, headers)

	assert.Equal(t, "image/png", aws.ToString(input.ContentType))
	assert.Equal(t, "max-age=3600", aws.ToString(input.CacheControl))
	assert.Equal(t, types.ObjectCannedACLPublicRead, input.ACL)
	assert.Equal(t, "*", aws.ToString(input.IfNoneMatch))
	assert.Equal(t, map[string]string{"owner": "42"}, input.Metadata)
}
