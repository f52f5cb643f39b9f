package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/nvr-ai/go-segment/config"
	"github.com/nvr-ai/go-segment/images"
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// FrameResult is the measurement record of one frame.
type FrameResult struct {
	Frame        int                       `json:"frame" msgpack:"frame"`
	Width        int                       `json:"width" msgpack:"width"`
	Height       int                       `json:"height" msgpack:"height"`
	InputSide    int                       `json:"input_side" msgpack:"input_side"`
	Mode         postprocess.OutputMode    `json:"mode" msgpack:"mode"`
	Labels       []uint16                  `json:"labels,omitempty" msgpack:"labels,omitempty"`
	Measurements []postprocess.Measurement `json:"measurements" msgpack:"measurements"`

	// Checksums fingerprints the instance masks, in instance order.
	Checksums []string `json:"checksums,omitempty" msgpack:"checksums,omitempty"`
}

// NewFrameResult summarizes an output.
func NewFrameResult(frame, inputSide int, out *postprocess.Output) FrameResult {
	res := FrameResult{
		Frame:        frame,
		Width:        out.Width,
		Height:       out.Height,
		InputSide:    inputSide,
		Mode:         out.Mode,
		Measurements: out.Measurements,
	}
	if out.Labels != nil {
		res.Labels = out.Labels.Labels()
	}
	for _, inst := range out.Instances {
		res.Checksums = append(res.Checksums, images.ComputeMaskChecksum(inst.Mask))
	}
	if res.Measurements == nil {
		res.Measurements = []postprocess.Measurement{}
	}
	return res
}

// WriteResults encodes the frame results as JSON or MessagePack.
func WriteResults(w io.Writer, format string, results []FrameResult) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case config.FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(results)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}

// WriteResultsFile creates path and writes the results into it. The file is
// closed before returning and a failed close is reported.
func WriteResultsFile(path, format string, results []FrameResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteResults(f, format, results); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	return nil
}
