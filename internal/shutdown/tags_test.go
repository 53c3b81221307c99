package shutdown

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
)

func TestFlattenTags(t *testing.T) {
	tests := []struct {
		name string
		tags []Tag
		want map[string]string
	}{
		{
			name: "all pairs kept",
			tags: []Tag{
				{Key: aws.String("Environment"), Value: aws.String("Dev")},
				{Key: aws.String("AutoShutdown"), Value: aws.String("True")},
				{Key: aws.String("Extra"), Value: aws.String("Val")},
			},
			want: map[string]string{"Environment": "Dev", "AutoShutdown": "True", "Extra": "Val"},
		},
		{
			name: "missing key dropped",
			tags: []Tag{{Value: aws.String("orphan")}, {Key: aws.String("a"), Value: aws.String("1")}},
			want: map[string]string{"a": "1"},
		},
		{
			name: "empty key dropped",
			tags: []Tag{{Key: aws.String(""), Value: aws.String("x")}},
			want: map[string]string{},
		},
		{
			name: "nil value dropped",
			tags: []Tag{{Key: aws.String("a")}},
			want: map[string]string{},
		},
		{
			name: "empty value kept",
			tags: []Tag{{Key: aws.String("a"), Value: aws.String("")}},
			want: map[string]string{"a": ""},
		},
		{
			name: "last duplicate wins",
			tags: []Tag{
				{Key: aws.String("Owner"), Value: aws.String("alice")},
				{Key: aws.String("Owner"), Value: aws.String("bob")},
			},
			want: map[string]string{"Owner": "bob"},
		},
		{
			name: "no tags",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenTags(tt.tags)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildLogEntries(t *testing.T) {
	instances := []Instance{
		{ID: "i-1", Tags: []Tag{{Key: aws.String("k"), Value: aws.String("v")}}},
		{ID: "i-2"},
	}

	entries := BuildLogEntries("exec-1", 1234, instances)

	assert.Equal(t, []LogEntry{
		{ExecutionID: "exec-1", InstanceID: "i-1", ShutdownTimestamp: 1234, Tags: map[string]string{"k": "v"}},
		{ExecutionID: "exec-1", InstanceID: "i-2", ShutdownTimestamp: 1234, Tags: map[string]string{}},
	}, entries)
}

func TestInstanceIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, InstanceIDs([]Instance{{ID: "b"}, {ID: "a"}}))
	assert.Empty(t, InstanceIDs(nil))
}
