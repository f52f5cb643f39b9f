package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-segment/images"
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func sampleOutput(t *testing.T) *postprocess.Output {
	t.Helper()
	labels, err := images.NewLabelImage(8, 8)
	require.NoError(t, err)
	labels.Set(1, 1, 3)
	return &postprocess.Output{
		Mode:   postprocess.ModeLabel,
		Width:  8,
		Height: 8,
		Labels: labels,
		Measurements: []postprocess.Measurement{{
			ObjectID:   "a",
			ClassID:    2,
			ClassName:  "car",
			Confidence: 0.75,
			Box:        images.Box{Left: 1, Top: 1, Width: 1, Height: 1},
			Area:       1,
			MaskScore:  0.5,
		}},
	}
}

func TestWriteResults(t *testing.T) {
	results := []FrameResult{NewFrameResult(4, 832, sampleOutput(t))}
	assert.Equal(t, []uint16{0, 3}, results[0].Labels)

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, "json", results))
	var fromJSON []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 1)
	assert.Equal(t, float64(832), fromJSON[0]["input_side"])
	measurements := fromJSON[0]["measurements"].([]any)
	assert.Equal(t, "car", measurements[0].(map[string]any)["class_name"])

	buf.Reset()
	require.NoError(t, WriteResults(&buf, "msgpack", results))
	var fromMsgpack []FrameResult
	require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &fromMsgpack))
	assert.Equal(t, results, fromMsgpack)

	assert.Error(t, WriteResults(&buf, "xml", results))
}

func TestNewFrameResult_NoObjects(t *testing.T) {
	res := NewFrameResult(0, 800, &postprocess.Output{Mode: postprocess.ModeInstance, Width: 2, Height: 2})
	assert.NotNil(t, res.Measurements)
	assert.Empty(t, res.Measurements)
	assert.Nil(t, res.Labels)
}

func TestWriteResultsFile(t *testing.T) {
	dir := t.TempDir()
	results := []FrameResult{NewFrameResult(1, 800, sampleOutput(t))}

	path := filepath.Join(dir, "results.json")
	require.NoError(t, WriteResultsFile(path, "json", results))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []FrameResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, 800, decoded[0].InputSide)

	err = WriteResultsFile(filepath.Join(dir, "results.xml"), "xml", results)
	assert.ErrorContains(t, err, "results.xml")

	assert.Error(t, WriteResultsFile(filepath.Join(dir, "missing", "results.json"), "json", results))
}
