package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterTable_LastWriteWins(t *testing.T) {
	table := NewCounterTable()
	table.Set("g", "c", 5)
	table.Set("g", "c", 7)

	got, ok := table.Get("g", "c")
	require.True(t, ok)
	assert.Equal(t, int64(7), got)
	assert.Equal(t, 1, table.Len())
}

func TestCounterTable_Groups(t *testing.T) {
	table := NewCounterTable()
	table.Set("FileSystemCounter", "HDFS_BYTES_READ", 1024)
	table.Set("FileSystemCounter", "HDFS_BYTES_WRITTEN", 512)
	table.Set("TaskCounter", "MAP_INPUT_RECORDS", 10)

	assert.ElementsMatch(t, []string{"FileSystemCounter", "TaskCounter"}, table.Groups())
	assert.Equal(t, 3, table.Len())

	group := table.Group("FileSystemCounter")
	assert.Equal(t, map[string]int64{"HDFS_BYTES_READ": 1024, "HDFS_BYTES_WRITTEN": 512}, group)

	// Group returns a copy.
	group["HDFS_BYTES_READ"] = 0
	got, _ := table.Get("FileSystemCounter", "HDFS_BYTES_READ")
	assert.Equal(t, int64(1024), got)

	_, ok := table.Get("TaskCounter", "missing")
	assert.False(t, ok)
	assert.Empty(t, table.Group("missing"))
}

func TestJobIDFromAppID(t *testing.T) {
	tests := []struct {
		name    string
		appID   string
		want    string
		wantErr bool
	}{
		{
			name:  "yarn application id",
			appID: "application_1443068695259_9143",
			want:  "job_1443068695259_9143",
		},
		{
			name:    "missing prefix",
			appID:   "job_1443068695259_9143",
			wantErr: true,
		},
		{
			name:    "prefix only",
			appID:   "application_",
			wantErr: true,
		},
		{
			name:    "empty",
			appID:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JobIDFromAppID(tt.appID)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
