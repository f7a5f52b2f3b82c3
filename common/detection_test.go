package common

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectionKeyString(t *testing.T) {
	key := Detection{TagID: 7, TagFamily: "tag36h11"}.Key()

	assert.Equal(t, DetectionKey{Family: "tag36h11", ID: 7}, key)
	assert.Equal(t, "tag36h11:7", key.String())
}

func TestParseKey(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    DetectionKey
		wantErr bool
	}{
		{name: "simple", input: "tag36h11:7", want: DetectionKey{Family: "tag36h11", ID: 7}},
		{name: "negative_id", input: "custom:-1", want: DetectionKey{Family: "custom", ID: -1}},
		{name: "colon_in_family", input: "a:b:3", want: DetectionKey{Family: "a:b", ID: 3}},
		{name: "missing_separator", input: "tag36h11", wantErr: true},
		{name: "non_numeric_id", input: "tag36h11:x", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseKey(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.input, got.String())
		})
	}
}

func TestSortKeys(t *testing.T) {
	keys := []DetectionKey{
		{Family: "tag36h11", ID: 10},
		{Family: "tag16h5", ID: 3},
		{Family: "tag36h11", ID: 2},
		{Family: "tag16h5", ID: 1},
	}

	SortKeys(keys)

	assert.Equal(t, []DetectionKey{
		{Family: "tag16h5", ID: 1},
		{Family: "tag16h5", ID: 3},
		{Family: "tag36h11", ID: 2},
		{Family: "tag36h11", ID: 10},
	}, keys)
}

func TestCompareKeys(t *testing.T) {
	a := DetectionKey{Family: "tag36h11", ID: 1}

	assert.Zero(t, CompareKeys(a, a))
	assert.Negative(t, CompareKeys(a, DetectionKey{Family: "tag36h11", ID: 2}))
	assert.Positive(t, CompareKeys(a, DetectionKey{Family: "tag25h9", ID: 99}))
}

func TestDetectionFileKeysKeepsDuplicates(t *testing.T) {
	file := DetectionFile{
		Image: "a.jpg",
		Detections: []Detection{
			{TagID: 1, TagFamily: "tag36h11"},
			{TagID: 1, TagFamily: "tag36h11"},
			{TagID: 2, TagFamily: "tag25h9"},
		},
	}

	assert.Equal(t, []DetectionKey{
		{Family: "tag36h11", ID: 1},
		{Family: "tag36h11", ID: 1},
		{Family: "tag25h9", ID: 2},
	}, file.Keys())
}

func TestOptionalTimingsJSON(t *testing.T) {
	api := jsoniter.ConfigCompatibleWithStandardLibrary

	t.Run("present", func(t *testing.T) {
		var file DetectionFile
		data := `{"image":"a.jpg","detections":[],"timings":{"image_load_ms":1.5,"total_detection_ms":20,
			"family_timings":[{"family":"tag36h11","initialization_ms":2,"detection_ms":18}]}}`
		require.NoError(t, api.Unmarshal([]byte(data), &file))

		timings, ok := file.Timings.Get()
		require.True(t, ok)
		assert.Equal(t, 1.5, timings.ImageLoadMs)
		assert.Equal(t, 20.0, timings.TotalDetectionMs)
		require.Len(t, timings.FamilyTimings, 1)
		assert.Equal(t, "tag36h11", timings.FamilyTimings[0].Family)
	})

	t.Run("absent", func(t *testing.T) {
		var file DetectionFile
		require.NoError(t, api.Unmarshal([]byte(`{"image":"a.jpg","detections":[]}`), &file))
		assert.False(t, file.Timings.Present())
	})

	t.Run("null", func(t *testing.T) {
		var file DetectionFile
		require.NoError(t, api.Unmarshal([]byte(`{"image":"a.jpg","detections":[],"timings":null}`), &file))
		assert.False(t, file.Timings.Present())
	})

	t.Run("marshal_absent", func(t *testing.T) {
		out, err := api.Marshal(DetectionFile{Image: "a.jpg"})
		require.NoError(t, err)
		assert.Contains(t, string(out), `"timings":null`)
	})
}

func TestManifestSupports(t *testing.T) {
	m := Manifest{SupportedFamilies: []string{"tag36h11", "tag25h9"}}

	assert.True(t, m.Supports("tag36h11"))
	assert.False(t, m.Supports("tag16h5"))
	assert.False(t, Manifest{}.Supports("tag36h11"))
}

func TestIsKnownFamily(t *testing.T) {
	for _, family := range KnownFamilies {
		assert.True(t, IsKnownFamily(family), family)
	}
	assert.False(t, IsKnownFamily("tag99h1"))
	assert.False(t, IsKnownFamily("TAG36H11"))
	assert.False(t, IsKnownFamily(""))
}
