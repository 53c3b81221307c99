package aws

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClients_EndpointOverride(t *testing.T) {
	awsCfg := aws.Config{Region: "us-east-1"}

	ec2Client := NewEC2Client(awsCfg, "http://localhost:4566")
	require.NotNil(t, ec2Client.Options().BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *ec2Client.Options().BaseEndpoint)

	ddbClient := NewDynamoDBClient(awsCfg, "http://localhost:8000")
	require.NotNil(t, ddbClient.Options().BaseEndpoint)
	assert.Equal(t, "http://localhost:8000", *ddbClient.Options().BaseEndpoint)
}

func TestNewClients_DefaultEndpoint(t *testing.T) {
	awsCfg := aws.Config{Region: "us-east-1"}

	assert.Nil(t, NewEC2Client(awsCfg, "").Options().BaseEndpoint)
	assert.Nil(t, NewDynamoDBClient(awsCfg, "").Options().BaseEndpoint)
}
