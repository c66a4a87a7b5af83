package metrics

import (
	"reflect"
	"testing"
)

func TestFlattenStatusBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets map[string]map[string]int
		want    []StatusBucket
	}{
		{
			name:    "nil buckets",
			buckets: nil,
			want:    nil,
		},
		{
			name:    "empty buckets",
			buckets: map[string]map[string]int{},
			want:    nil,
		},
		{
			name: "single bucket",
			buckets: map[string]map[string]int{
				"Get Rooms": {"200": 10},
			},
			want: []StatusBucket{
				{Step: "Get Rooms", Code: "200", Count: 10},
			},
		},
		{
			name: "multiple buckets sorted by count desc",
			buckets: map[string]map[string]int{
				"Login": {
					"200": 10,
					"401": 5,
				},
				"Get Rooms": {
					"200": 20,
				},
			},
			want: []StatusBucket{
				{Step: "Get Rooms", Code: "200", Count: 20},
				{Step: "Login", Code: "200", Count: 10},
				{Step: "Login", Code: "401", Count: 5},
			},
		},
		{
			name: "tie breaking by step then code",
			buckets: map[string]map[string]int{
				"Login": {
					"200": 10,
					"none": 10,
				},
				"Get Rooms": {
					"200": 10,
				},
			},
			want: []StatusBucket{
				{Step: "Get Rooms", Code: "200", Count: 10},
				{Step: "Login", Code: "200", Count: 10},
				{Step: "Login", Code: "none", Count: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenStatusBuckets(tt.buckets)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenStatusBuckets() = %v, want %v", got, tt.want)
			}
		})
	}
}
